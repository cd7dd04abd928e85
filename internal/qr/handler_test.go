package qr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/sos-checkout/internal/profile"
	"github.com/frahmantamala/sos-checkout/internal/transport"
)

var _ = ginkgo.Describe("Handler", func() {
	var (
		profiles *fakeProfiles
		service  *Service
		router   *chi.Mux
	)

	resolve := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/emergency/"+token, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	ginkgo.BeforeEach(func() {
		profiles = newFakeProfiles()
		service = NewService([]byte(testSecret), time.Hour, "https://sos.example.com/emergency/", profiles, testLogger())
		handler := NewHandler(transport.NewBaseHandler(testLogger()), service, profiles, testLogger())

		router = chi.NewRouter()
		router.Get("/emergency/{token}", handler.ResolveEmergencyView)
	})

	ginkgo.It("should render the premium emergency view", func() {
		profiles.add(&profile.ProfileView{
			ID:                 "profile-1",
			FullName:           "Ana Souza",
			BloodType:          "O-",
			Plan:               "premium",
			SubscriptionStatus: "active",
			Allergies:          json.RawMessage(`["penicillin"]`),
			Medications:        json.RawMessage(`["insulin"]`),
		})
		_, err := service.IssueForProfile(context.Background(), "profile-1", "premium")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		rec := resolve(profiles.tokens["profile-1"])

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

		var view EmergencyView
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &view)).To(gomega.Succeed())
		gomega.Expect(view.FullName).To(gomega.Equal("Ana Souza"))
		gomega.Expect(view.BloodType).To(gomega.Equal("O-"))
		gomega.Expect(string(view.Medications)).To(gomega.ContainSubstring("insulin"))
	})

	ginkgo.It("should hide premium fields on the basic plan", func() {
		profiles.add(&profile.ProfileView{
			ID:                 "profile-2",
			FullName:           "Ana Souza",
			Plan:               "basic",
			SubscriptionStatus: "active",
			Allergies:          json.RawMessage(`["penicillin"]`),
			Medications:        json.RawMessage(`["insulin"]`),
		})
		_, err := service.IssueForProfile(context.Background(), "profile-2", "basic")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		rec := resolve(profiles.tokens["profile-2"])

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

		var view EmergencyView
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &view)).To(gomega.Succeed())
		gomega.Expect(string(view.Allergies)).To(gomega.ContainSubstring("penicillin"))
		gomega.Expect(view.Medications).To(gomega.BeNil())
	})

	ginkgo.It("should return 404 when the subscription is not active", func() {
		profiles.add(&profile.ProfileView{
			ID:                 "profile-3",
			FullName:           "Ana Souza",
			Plan:               "basic",
			SubscriptionStatus: "inactive",
		})
		_, err := service.IssueForProfile(context.Background(), "profile-3", "basic")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		rec := resolve(profiles.tokens["profile-3"])

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNotFound))
	})

	ginkgo.It("should return 401 for a bad token", func() {
		rec := resolve("not-a-token")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
	})
})
