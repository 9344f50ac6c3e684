package enums

// DeliveryType mirrors the courier wire values: 0 for home delivery,
// 1 for point delivery / hub pickup.
type DeliveryType int

const (
	DeliveryTypeHome  DeliveryType = 0
	DeliveryTypePoint DeliveryType = 1
)

// IsValid reports whether the delivery type is a known wire value.
func (d DeliveryType) IsValid() bool {
	return d == DeliveryTypeHome || d == DeliveryTypePoint
}
