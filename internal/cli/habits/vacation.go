package habits

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/cli"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/state"
)

type VacationCmd struct {
	On     VacationOnCmd     `cmd:"" help:"Pause streaks starting today."`
	Off    VacationOffCmd    `cmd:"" help:"End the current vacation."`
	Status VacationStatusCmd `cmd:"" help:"Show vacation history." default:"1"`
}

type VacationOnCmd struct{}

func (c *VacationOnCmd) Run(ctx *cli.Context) error {
	today := ctx.Today()
	if models.OpenInterval(ctx.Service.State().Vacation) >= 0 {
		fmt.Println("Vacation mode is already on.")
		return nil
	}
	if err := ctx.Service.Apply(context.Background(), state.SetVacationMode(true, today, uuid.New().String())); err != nil {
		return fmt.Errorf("failed to start vacation: %w", err)
	}
	cli.OK("Vacation mode on from %s", today)
	return nil
}

type VacationOffCmd struct{}

func (c *VacationOffCmd) Run(ctx *cli.Context) error {
	today := ctx.Today()
	if models.OpenInterval(ctx.Service.State().Vacation) < 0 {
		fmt.Println("Vacation mode is not on.")
		return nil
	}
	if err := ctx.Service.Apply(context.Background(), state.SetVacationMode(false, today, "")); err != nil {
		return fmt.Errorf("failed to end vacation: %w", err)
	}
	cli.OK("Vacation mode off as of %s", today)
	return nil
}

type VacationStatusCmd struct{}

func (c *VacationStatusCmd) Run(ctx *cli.Context) error {
	intervals := ctx.Service.State().Vacation
	if len(intervals) == 0 {
		fmt.Println("No vacations recorded.")
		return nil
	}
	for _, v := range intervals {
		end := "ongoing"
		if v.EndDate != nil {
			end = *v.EndDate
		}
		fmt.Printf("  %s → %s\n", v.StartDate, end)
	}
	return nil
}
