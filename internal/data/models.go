package data

import "time"

// Order is one production request for a drawing. Repeat production of the
// same drawing creates a new row, never an update of an old one.
type Order struct {
	ID            uint   `gorm:"primaryKey"`
	DrawingNumber string `gorm:"size:100;index:idx_orders_drawing_number"`
	Quantity      int
	Priority      int
	Deadline      *time.Time
	WorkType      string `gorm:"size:200;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Operations []Operation `gorm:"foreignKey:OrderID"`
}

// Operation is one manufacturing step of an order.
type Operation struct {
	ID                uint   `gorm:"primaryKey"`
	OrderID           uint   `gorm:"index:idx_operations_order_number,priority:1"`
	OperationNumber   int    `gorm:"index:idx_operations_order_number,priority:2"`
	OperationType     string `gorm:"size:64;index"`
	EstimatedTime     int
	Status            string `gorm:"size:32;index"`
	AssignedMachineID *uint  `gorm:"index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Progress *ExecutionProgress `gorm:"foreignKey:OperationID"`
}

// ExecutionProgress records shop-floor progress of an operation.
type ExecutionProgress struct {
	ID                 uint `gorm:"primaryKey"`
	OperationID        uint `gorm:"uniqueIndex"`
	CompletedUnits     int
	TotalUnits         int
	ProgressPercentage float64
	UpdatedAt          time.Time
}

// TableName keeps the table name used by the order-management service.
func (ExecutionProgress) TableName() string {
	return "operation_execution_progress"
}

// Machine is a work center an operation can be assigned to.
type Machine struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"size:32;uniqueIndex"`
	Type string `gorm:"size:32;index"`
}
