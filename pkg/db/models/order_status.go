package models

// OrderStatusRow is immutable reference data mapping status names to their
// stable numeric ids.
type OrderStatusRow struct {
	ID   int64  `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;not null;uniqueIndex"`
}

// TableName keeps the reference table name free of the Row suffix.
func (OrderStatusRow) TableName() string {
	return "order_statuses"
}
