package models

import (
	"slices"
	"strings"

	"github.com/safar/retail-store/internal/errs"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

// OrderStatuses lists every fulfillment status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

func (s OrderStatus) Valid() bool { return slices.Contains(OrderStatuses, s) }

func ParseOrderStatus(v string) (OrderStatus, error) {
	s := OrderStatus(normalizeEnum(v))
	if !s.Valid() {
		return "", errs.Validationf("unknown order status %q", v)
	}
	return s, nil
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

var PaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

func (s PaymentStatus) Valid() bool { return slices.Contains(PaymentStatuses, s) }

func ParsePaymentStatus(v string) (PaymentStatus, error) {
	s := PaymentStatus(normalizeEnum(v))
	if !s.Valid() {
		return "", errs.Validationf("unknown payment status %q", v)
	}
	return s, nil
}

// ShippingMethod is optional on an order; the empty value means none chosen.
type ShippingMethod string

const (
	ShippingMethodStandard  ShippingMethod = "STANDARD"
	ShippingMethodExpress   ShippingMethod = "EXPRESS"
	ShippingMethodOvernight ShippingMethod = "OVERNIGHT"
	ShippingMethodPickup    ShippingMethod = "PICKUP"
)

var ShippingMethods = []ShippingMethod{
	ShippingMethodStandard,
	ShippingMethodExpress,
	ShippingMethodOvernight,
	ShippingMethodPickup,
}

func (m ShippingMethod) Valid() bool { return slices.Contains(ShippingMethods, m) }

func ParseShippingMethod(v string) (ShippingMethod, error) {
	m := ShippingMethod(normalizeEnum(v))
	if !m.Valid() {
		return "", errs.Validationf("unknown shipping method %q", v)
	}
	return m, nil
}

type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "ACTIVE"
	ProductStatusInactive     ProductStatus = "INACTIVE"
	ProductStatusOutOfStock   ProductStatus = "OUT_OF_STOCK"
	ProductStatusDiscontinued ProductStatus = "DISCONTINUED"
)

var ProductStatuses = []ProductStatus{
	ProductStatusActive,
	ProductStatusInactive,
	ProductStatusOutOfStock,
	ProductStatusDiscontinued,
}

func (s ProductStatus) Valid() bool { return slices.Contains(ProductStatuses, s) }

func ParseProductStatus(v string) (ProductStatus, error) {
	s := ProductStatus(normalizeEnum(v))
	if !s.Valid() {
		return "", errs.Validationf("unknown product status %q", v)
	}
	return s, nil
}

type ProductCategory string

const (
	CategoryElectronics   ProductCategory = "ELECTRONICS"
	CategoryClothing      ProductCategory = "CLOTHING"
	CategoryBooks         ProductCategory = "BOOKS"
	CategoryHomeAndGarden ProductCategory = "HOME_AND_GARDEN"
	CategorySports        ProductCategory = "SPORTS"
	CategoryBeauty        ProductCategory = "BEAUTY"
	CategoryAutomotive    ProductCategory = "AUTOMOTIVE"
	CategoryToys          ProductCategory = "TOYS"
	CategoryFood          ProductCategory = "FOOD"
	CategoryHealth        ProductCategory = "HEALTH"
)

var ProductCategories = []ProductCategory{
	CategoryElectronics,
	CategoryClothing,
	CategoryBooks,
	CategoryHomeAndGarden,
	CategorySports,
	CategoryBeauty,
	CategoryAutomotive,
	CategoryToys,
	CategoryFood,
	CategoryHealth,
}

func (c ProductCategory) Valid() bool { return slices.Contains(ProductCategories, c) }

func ParseProductCategory(v string) (ProductCategory, error) {
	c := ProductCategory(normalizeEnum(v))
	if !c.Valid() {
		return "", errs.Validationf("unknown product category %q", v)
	}
	return c, nil
}

func normalizeEnum(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}
