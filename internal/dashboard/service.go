package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Summary is the seller dashboard. Money figures only count approved
// payments and only the seller's own lines within them.
type Summary struct {
	SellerID       uuid.UUID       `json:"usuario_id"`
	ActiveProducts int64           `json:"total_produtos"`
	Revenue        decimal.Decimal `json:"faturamento_total"`
	SalesCount     int64           `json:"total_vendas"`
	LastSale       *LastSale       `json:"ultima_venda"`
	BestSeller     *BestSeller     `json:"produto_mais_vendido"`
}

type LastSale struct {
	OrderID    uuid.UUID       `json:"ordem_id"`
	CustomerID uuid.UUID       `json:"cliente_id"`
	PaidAt     *time.Time      `json:"data_pagamento"`
	LineCount  int64           `json:"qtd_itens"`
	LineValue  decimal.Decimal `json:"valor"`
}

type BestSeller struct {
	ProductID uuid.UUID       `json:"produto_id"`
	Name      string          `json:"nome"`
	ImageURL  *string         `json:"img,omitempty"`
	Quantity  int64           `json:"qtd_vendida"`
	Price     decimal.Decimal `json:"valor"`
	Revenue   decimal.Decimal `json:"faturamento"`
}

type Service interface {
	Summary(ctx context.Context, actor pkgauth.Actor, sellerID uuid.UUID) (*Summary, error)
}

type service struct {
	base repo.Base
}

func NewService(conn *gorm.DB) (Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("db required")
	}
	return &service{base: repo.NewBase(conn)}, nil
}

func (s *service) Summary(ctx context.Context, actor pkgauth.Actor, sellerID uuid.UUID) (*Summary, error) {
	if !actor.CanActOn(sellerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot read another seller's dashboard")
	}
	conn := s.base.DB(ctx)

	var exists int64
	if err := conn.Model(&models.User{}).Where("id = ?", sellerID).Count(&exists).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check seller")
	}
	if exists == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	out := &Summary{SellerID: sellerID, Revenue: decimal.Zero}
	if err := conn.Model(&models.Product{}).
		Where("seller_id = ? AND is_active = ?", sellerID, true).
		Count(&out.ActiveProducts).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count products")
	}

	var totals struct {
		Revenue    decimal.NullDecimal
		SalesCount int64
	}
	if err := sellerLines(conn, sellerID).
		Select("SUM(ol.unit_price * ol.quantity) AS revenue, COUNT(DISTINCT pay.id) AS sales_count").
		Scan(&totals).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum revenue")
	}
	if totals.Revenue.Valid {
		out.Revenue = totals.Revenue.Decimal
	}
	out.SalesCount = totals.SalesCount
	if out.SalesCount == 0 {
		return out, nil
	}

	var last []struct {
		OrderID    uuid.UUID
		CustomerID uuid.UUID
		PaidAt     *time.Time
		LineCount  int64
		LineValue  decimal.Decimal
	}
	if err := sellerLines(conn, sellerID).
		Select("pay.order_id AS order_id, pay.user_id AS customer_id, pay.paid_at AS paid_at, COUNT(ol.id) AS line_count, SUM(ol.unit_price * ol.quantity) AS line_value").
		Group("pay.order_id, pay.user_id, pay.paid_at").
		Order("pay.paid_at IS NULL, pay.paid_at DESC").
		Limit(1).
		Scan(&last).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load last sale")
	}
	if len(last) > 0 {
		out.LastSale = &LastSale{
			OrderID:    last[0].OrderID,
			CustomerID: last[0].CustomerID,
			PaidAt:     last[0].PaidAt,
			LineCount:  last[0].LineCount,
			LineValue:  last[0].LineValue,
		}
	}

	var best []struct {
		ProductID uuid.UUID
		Name      string
		ImageURL  *string
		Quantity  int64
		Price     decimal.Decimal
		Revenue   decimal.Decimal
	}
	if err := sellerLines(conn, sellerID).
		Select("pr.id AS product_id, pr.name AS name, pr.image_url AS image_url, pr.price AS price, SUM(ol.quantity) AS quantity, SUM(ol.unit_price * ol.quantity) AS revenue").
		Group("pr.id, pr.name, pr.image_url, pr.price").
		Order("quantity DESC, revenue DESC").
		Limit(1).
		Scan(&best).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load best seller")
	}
	if len(best) > 0 {
		b := best[0]
		out.BestSeller = &BestSeller{
			ProductID: b.ProductID,
			Name:      b.Name,
			ImageURL:  b.ImageURL,
			Quantity:  b.Quantity,
			Price:     b.Price,
			Revenue:   b.Revenue,
		}
	}
	return out, nil
}

// sellerLines selects the seller's order lines belonging to approved payments.
func sellerLines(conn *gorm.DB, sellerID uuid.UUID) *gorm.DB {
	return conn.Table("payments AS pay").
		Joins("JOIN order_lines AS ol ON ol.order_id = pay.order_id").
		Joins("JOIN products AS pr ON pr.id = ol.product_id").
		Where("pr.seller_id = ?", sellerID).
		Where("((pay.gateway = ? AND pay.status = ?) OR (pay.gateway = ? AND pay.status = ?))",
			enums.PaymentGatewayMercadoPago, enums.PaymentStatusApproved,
			enums.PaymentGatewaySquare, enums.PaymentStatusSquareCompleted)
}
