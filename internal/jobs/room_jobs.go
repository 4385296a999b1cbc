package jobs

import (
	"context"
	"time"

	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/logger"
	"roomrent-dashboard/internal/utils"
)

const jobTimeout = 30 * time.Second

// DueCheckout is an occupied room whose stay ends today or already ended.
type DueCheckout struct {
	RoomID   string
	RoomName string
	Tenant   string
	CheckOut string
	DaysLeft int
}

func (d DueCheckout) Overdue() bool {
	return d.DaysLeft < 0
}

// FindDueCheckouts returns the rooms the dashboard labels "Due today",
// which includes stays past their check-out date.
func FindDueCheckouts(rooms []domain.Room, today time.Time, loc *time.Location) []DueCheckout {
	date := utils.Today(today, loc)
	var due []DueCheckout
	for _, r := range rooms {
		if !r.IsOccupied() || r.CurrentBooking == nil {
			continue
		}
		days := utils.DaysLeft(r.CurrentBooking.CheckOut, date)
		if days > 0 {
			continue
		}
		due = append(due, DueCheckout{
			RoomID:   r.ID,
			RoomName: r.Name,
			Tenant:   r.CurrentBooking.TenantName,
			CheckOut: r.CurrentBooking.CheckOut.String(),
			DaysLeft: days,
		})
	}
	return due
}

// ReportDueCheckouts logs every room whose tenant should leave today.
func (jr *JobRunner) ReportDueCheckouts() {
	jr.runWithRecovery("ReportDueCheckouts", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		rooms, err := jr.rooms.ListRooms(ctx)
		if err != nil {
			logger.Error("Failed to list rooms for due checkouts", "error", err)
			return
		}

		due := FindDueCheckouts(rooms, jr.now(), jr.loc)
		for _, d := range due {
			if d.Overdue() {
				logger.Warn("Checkout overdue", "room_id", d.RoomID, "room", d.RoomName, "tenant", d.Tenant, "check_out", d.CheckOut, "days_overdue", -d.DaysLeft)
			} else {
				logger.Info("Checkout due today", "room_id", d.RoomID, "room", d.RoomName, "tenant", d.Tenant, "check_out", d.CheckOut)
			}
		}
		logger.Info("Due checkouts reported", "count", len(due))
	})
}

// ReportOccupancy logs the current room stats.
func (jr *JobRunner) ReportOccupancy() {
	jr.runWithRecovery("ReportOccupancy", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		rooms, err := jr.rooms.ListRooms(ctx)
		if err != nil {
			logger.Error("Failed to list rooms for occupancy report", "error", err)
			return
		}

		stats := domain.ComputeStats(rooms)
		logger.Info("Occupancy", "total", stats.Total, "available", stats.Available, "occupied", stats.Occupied)
	})
}
