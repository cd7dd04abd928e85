package main

import (
	"github.com/frahmantamala/sos-checkout/cmd"
)

func main() {
	cmd.Execute()
}
