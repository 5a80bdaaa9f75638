package data

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"shopfloor-estimator/internal/estimator"

	"gorm.io/gorm"
)

// SeedConfig controls the size of the synthetic shop-floor dataset.
type SeedConfig struct {
	Drawings  int
	MaxRepeat int
	BatchSize int
}

// binaryDrawingColumn makes drawing number comparisons on MySQL case and
// accent sensitive while keeping idx_orders_drawing_number usable.
const binaryDrawingColumn = "ALTER TABLE orders MODIFY drawing_number VARCHAR(100) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin"

// EnsureSchema applies the required database schema.
func EnsureSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&Machine{}, &Order{}, &Operation{}, &ExecutionProgress{}); err != nil {
		return err
	}
	return applyDialectSchema(db)
}

func applyDialectSchema(db *gorm.DB) error {
	if db.Dialector.Name() != "mysql" {
		return nil
	}
	if err := db.Exec(binaryDrawingColumn).Error; err != nil {
		return fmt.Errorf("set drawing number collation: %w", err)
	}
	return nil
}

// SeedDataset inserts machines, orders, operations and progress rows.
// It does nothing when orders already exist.
func SeedDataset(ctx context.Context, db *gorm.DB, cfg SeedConfig) error {
	if cfg.Drawings <= 0 {
		cfg.Drawings = 20
	}
	if cfg.MaxRepeat <= 0 {
		cfg.MaxRepeat = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}

	var existing int64
	if err := db.WithContext(ctx).Model(&Order{}).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	machines, err := seedMachines(ctx, db)
	if err != nil {
		return fmt.Errorf("seed machines: %w", err)
	}
	return seedOrders(ctx, db, cfg, machines)
}

func seedMachines(ctx context.Context, db *gorm.DB) (map[string][]Machine, error) {
	machines := []Machine{
		{Code: "M1", Type: "MILLING"},
		{Code: "M2", Type: "TURNING"},
		{Code: "M3", Type: "MILLING"},
		{Code: "M4", Type: "TURNING"},
		{Code: "M5", Type: "DRILLING"},
	}
	if err := db.WithContext(ctx).Create(&machines).Error; err != nil {
		return nil, err
	}
	byType := make(map[string][]Machine)
	for _, m := range machines {
		byType[m.Type] = append(byType[m.Type], m)
	}
	return byType, nil
}

// routing is the ordered operation types and per-unit minutes of a drawing.
type routing struct {
	opType      string
	minutesUnit float64
}

func seedOrders(ctx context.Context, db *gorm.DB, cfg SeedConfig, machines map[string][]Machine) error {
	rnd := rand.New(rand.NewSource(42))
	now := time.Now()
	batch := make([]Order, 0, cfg.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := db.WithContext(ctx).Create(&batch).Error; err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for d := 0; d < cfg.Drawings; d++ {
		drawing := fmt.Sprintf("DWG-%03d", 100+d)
		workType := randomChoice(workTypes, rnd)
		route := randomRouting(rnd)
		repeats := rnd.Intn(cfg.MaxRepeat) + 1

		for r := 0; r < repeats; r++ {
			newest := r == repeats-1
			qty := (rnd.Intn(20) + 1) * 5
			created := now.Add(-time.Duration(repeats-r) * 30 * 24 * time.Hour)
			deadline := created.Add(time.Duration(rnd.Intn(30)+7) * 24 * time.Hour)

			order := Order{
				DrawingNumber: drawing,
				Quantity:      qty,
				Priority:      rnd.Intn(4) + 1,
				Deadline:      &deadline,
				WorkType:      workType,
				CreatedAt:     created,
				UpdatedAt:     created,
			}
			for i, step := range route {
				status := estimator.StatusCompleted
				if newest {
					status = randomStatus(rnd)
				}
				order.Operations = append(order.Operations, buildOperation(i+1, step, qty, status, created, machines, rnd))
			}
			batch = append(batch, order)
			if len(batch) == cap(batch) {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	return flush()
}

func buildOperation(number int, step routing, qty int, status estimator.Status, created time.Time, machines map[string][]Machine, rnd *rand.Rand) Operation {
	noise := 0.85 + rnd.Float64()*0.3
	updated := created.Add(time.Duration(number*8+rnd.Intn(48)) * time.Hour)
	op := Operation{
		OperationNumber: number * 10,
		OperationType:   step.opType,
		EstimatedTime:   int(step.minutesUnit * float64(qty) * noise),
		Status:          string(status),
		CreatedAt:       created,
		UpdatedAt:       updated,
	}
	if status == estimator.StatusPending {
		return op
	}
	if candidates := machines[step.opType]; len(candidates) > 0 {
		id := candidates[rnd.Intn(len(candidates))].ID
		op.AssignedMachineID = &id
	}

	done := 0
	switch status {
	case estimator.StatusCompleted:
		done = qty
	case estimator.StatusInProgress:
		done = rnd.Intn(qty)
	}
	op.Progress = &ExecutionProgress{
		CompletedUnits:     done,
		TotalUnits:         qty,
		ProgressPercentage: float64(done) / float64(qty) * 100,
		UpdatedAt:          updated,
	}
	return op
}

var (
	workTypes      = []string{"prototype", "serial", "repair"}
	operationTypes = []string{"MILLING", "TURNING", "DRILLING", "GRINDING"}
	inFlight       = []estimator.Status{
		estimator.StatusPending,
		estimator.StatusAssigned,
		estimator.StatusInProgress,
		estimator.StatusCompleted,
	}
)

func randomRouting(rnd *rand.Rand) []routing {
	steps := rnd.Intn(3) + 1
	route := make([]routing, 0, steps)
	for i := 0; i < steps; i++ {
		route = append(route, routing{
			opType:      randomChoice(operationTypes, rnd),
			minutesUnit: 2 + rnd.Float64()*10,
		})
	}
	return route
}

func randomChoice(items []string, rnd *rand.Rand) string {
	return items[rnd.Intn(len(items))]
}

func randomStatus(rnd *rand.Rand) estimator.Status {
	return inFlight[rnd.Intn(len(inFlight))]
}
