package payment

import (
	"context"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/sos-checkout/internal/core/events"
	paymentmodel "github.com/frahmantamala/sos-checkout/internal/core/datamodel/payment"
)

var _ = ginkgo.Describe("Sweeper", func() {
	var (
		repo    *memoryRepo
		service *Service
		sweeper *Sweeper
		ctx     context.Context
	)

	addPayment := func(id string, status paymentmodel.Status, expiresAt time.Time) {
		p := &paymentmodel.Payment{
			ID:          id,
			AmountCents: 500,
			Instrument:  paymentmodel.InstrumentPix,
			Status:      status,
			ExpiresAt:   expiresAt,
		}
		gomega.Expect(repo.Create(p)).To(gomega.Succeed())
	}

	ginkgo.BeforeEach(func() {
		repo = newMemoryRepo()
		gw := &fakeGateway{verifyOK: true}
		activator := &fakeActivator{profileID: "profile-1"}
		service = NewService(repo, gw, activator, events.NewEventBus(testLogger()), "", testLogger())
		sweeper = NewSweeper(repo, service, time.Minute, 10, testLogger())
		ctx = context.Background()
	})

	ginkgo.It("should cancel expired pending payments", func() {
		addPayment("pay-expired", paymentmodel.StatusPending, time.Now().UTC().Add(-time.Minute))
		addPayment("pay-fresh", paymentmodel.StatusPending, time.Now().UTC().Add(time.Hour))

		processed, err := sweeper.SweepOnce(ctx)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(processed).To(gomega.Equal(1))

		expired, err := repo.GetByID("pay-expired")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(expired.Status).To(gomega.Equal(paymentmodel.StatusCancelled))
		gomega.Expect(*expired.FailureReason).To(gomega.Equal("expired"))

		fresh, err := repo.GetByID("pay-fresh")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(fresh.Status).To(gomega.Equal(paymentmodel.StatusPending))
	})

	ginkgo.It("should never touch non-pending payments", func() {
		addPayment("pay-approved", paymentmodel.StatusApproved, time.Now().UTC().Add(-time.Hour))

		processed, err := sweeper.SweepOnce(ctx)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(processed).To(gomega.Equal(0))

		p, err := repo.GetByID("pay-approved")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(p.Status).To(gomega.Equal(paymentmodel.StatusApproved))
	})

	ginkgo.It("should report zero on an empty pass", func() {
		processed, err := sweeper.SweepOnce(ctx)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(processed).To(gomega.Equal(0))
	})

	ginkgo.It("should be safe to run twice over the same records", func() {
		addPayment("pay-expired", paymentmodel.StatusPending, time.Now().UTC().Add(-time.Minute))

		_, err := sweeper.SweepOnce(ctx)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		processed, err := sweeper.SweepOnce(ctx)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(processed).To(gomega.Equal(0))
	})
})
