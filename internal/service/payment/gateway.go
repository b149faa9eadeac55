package payment

import (
	"time"

	"github.com/medmap/scheduling-api/internal/config"
)

const (
	sandboxHost = "https://sandbox.payfast.co.za"
	liveHost    = "https://www.payfast.co.za"
)

// GatewayConfig is everything the payment service knows about the gateway account.
type GatewayConfig struct {
	MerchantID          string
	MerchantKey         string
	Passphrase          string
	Sandbox             bool
	NotifyURL           string
	ReturnURL           string
	CancelURL           string
	MembershipReturnURL string
	MembershipCancelURL string
	// DedupTTL bounds how long a reconciled gateway reference is remembered in process.
	DedupTTL time.Duration
}

func GatewayConfigFrom(cfg config.PayFastConfig) GatewayConfig {
	gc := GatewayConfig{
		MerchantID:          cfg.MerchantID,
		MerchantKey:         cfg.MerchantKey,
		Passphrase:          cfg.Passphrase,
		Sandbox:             cfg.Sandbox,
		NotifyURL:           cfg.NotifyURL,
		ReturnURL:           cfg.ReturnURL,
		CancelURL:           cfg.CancelURL,
		MembershipReturnURL: cfg.MembershipReturnURL,
		MembershipCancelURL: cfg.MembershipCancelURL,
		DedupTTL:            cfg.DedupTTL,
	}
	if gc.MembershipReturnURL == "" {
		gc.MembershipReturnURL = gc.ReturnURL
	}
	if gc.MembershipCancelURL == "" {
		gc.MembershipCancelURL = gc.CancelURL
	}
	if gc.DedupTTL <= 0 {
		gc.DedupTTL = 10 * time.Minute
	}
	return gc
}

// ProcessURL is where the client posts the signed checkout form.
func (c GatewayConfig) ProcessURL() string {
	if c.Sandbox {
		return sandboxHost + "/eng/process"
	}
	return liveHost + "/eng/process"
}
