package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridpool/gridpool/app"
	"github.com/gridpool/gridpool/config"
	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/core/quantity"
	"github.com/gridpool/gridpool/infra/logger"
)

var (
	proposePool     string
	proposeValue    float64
	proposePriority int
	proposeActor    string
)

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Inject a test power proposal and report the distribution outcome",
	RunE:  propose,
}

func init() {
	proposeCmd.Flags().StringVar(&proposePool, "pool", "", "target pool id")
	proposeCmd.Flags().Float64Var(&proposeValue, "value", 0, "proposed power in the pool unit")
	proposeCmd.Flags().IntVar(&proposePriority, "priority", 0, "proposal priority")
	proposeCmd.Flags().StringVar(&proposeActor, "actor", "cli", "actor id")
	_ = proposeCmd.MarkFlagRequired("pool")
	rootCmd.AddCommand(proposeCmd)
}

func propose(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logg := logger.New("propose-command")
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	unit := quantity.Watt
	for _, p := range cfg.Power.Pools {
		if p.ID == proposePool {
			unit = p.Unit
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := svc.Run(runCtx); err != nil {
			logg.Errorf("service error: %v", err)
		}
	}()

	results := svc.Coordinator.SubscribeResults(proposePool)
	p := model.Proposal{
		ActorID:   proposeActor,
		PoolID:    proposePool,
		Value:     quantity.Quantity{Value: proposeValue, Unit: unit},
		Priority:  proposePriority,
		CreatedAt: time.Now(),
	}
	if err := svc.Coordinator.SubmitProposal(p); err != nil {
		return fmt.Errorf("submit proposal: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res, ok := <-results:
		if !ok {
			return fmt.Errorf("result stream closed")
		}
		logg.Infof("pool %s: requested %s achieved %s (%d ok, %d failed)",
			res.PoolID, res.Requested, res.Achieved, len(res.Succeeded), len(res.Failed))
		for id, cerr := range res.Errors {
			logg.Errorf("component %s: %v", id, cerr)
		}
		if !res.FullyAchieved() {
			return fmt.Errorf("distribution fell short of the request")
		}
	}
	return nil
}
