package payments

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mercadopago"
	"github.com/angelmondragon/storefront-backend/pkg/square"
)

// GatewaySet holds the gateways built from configuration. Methods is nil when
// Mercado Pago is not configured.
type GatewaySet struct {
	Gateways []Gateway
	Methods  methodLister
}

// GatewaysFromConfig builds a gateway for every provider with credentials.
// Providers without credentials are skipped and logged.
func GatewaysFromConfig(ctx context.Context, cfg *config.Config, logg *logger.Logger) (GatewaySet, error) {
	var set GatewaySet

	if cfg.MercadoPago.Enabled() {
		client, err := mercadopago.NewClientFromConfig(cfg.MercadoPago)
		if err != nil {
			return GatewaySet{}, fmt.Errorf("mercado pago client: %w", err)
		}
		gw := NewMercadoPagoGateway(client, cfg.MercadoPago.NotificationURL)
		set.Gateways = append(set.Gateways, gw)
		set.Methods = gw
	} else {
		logg.Warn(ctx, "mercado pago disabled: no access token")
	}

	if cfg.Square.Enabled() {
		client, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return GatewaySet{}, fmt.Errorf("square client: %w", err)
		}
		set.Gateways = append(set.Gateways, NewSquareGateway(client))
	} else {
		logg.Warn(ctx, "square disabled: no access token")
	}

	return set, nil
}
