// Command masterd runs the reward engine as a single long-lived daemon:
// one master allocator, one LP staking engine, and one dev-fund sink,
// all sharing one transactional store and wired together through an
// internal/host.Host so allocation and notification stay atomic.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/emitlabs/reward-engine/internal/config"
	"github.com/emitlabs/reward-engine/internal/devfund"
	"github.com/emitlabs/reward-engine/internal/host"
	"github.com/emitlabs/reward-engine/internal/logging"
	"github.com/emitlabs/reward-engine/internal/lpstaking"
	dmaster "github.com/emitlabs/reward-engine/internal/master"
	"github.com/emitlabs/reward-engine/internal/metrics"
	"github.com/emitlabs/reward-engine/internal/rpcserver"
	"github.com/emitlabs/reward-engine/internal/store"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "masterd",
	Short: "Reward engine daemon",
	Long:  "Runs the weight-based token emission and reward-distribution engine as a JSON-RPC service.",
	RunE:  runDaemon,
}

func init() {
	config.BindDaemonFlags(v, rootCmd.PersistentFlags())
	v.SetEnvPrefix("reward_engine")
	v.AutomaticEnv()
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	log := logging.New(os.Stdout, logging.ParseLevel(v.GetString("log-level")), logging.FormatJSON)
	log.Info("starting masterd", "version", Version, "commit", Commit)

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	m := dmaster.New()
	staking := lpstaking.New()
	sink := devfund.New()

	if err := bootstrap(db, cfg, m, staking, sink); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	h := host.New(db, m, cfg.MasterAddr, log)
	h.RegisterNotifier(cfg.DevFundAddr, sink)

	reg := metrics.New()

	srv := rpcserver.New(log)
	rpcserver.RegisterAll(srv, rpcserver.Deps{
		DB:      db,
		Master:  m,
		Staking: staking,
		DevFund: sink,
		Host:    h,
	})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Router()}
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: reg.Handler()}

	go func() {
		log.Info("rpc server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("rpc server failed", "error", err)
			os.Exit(1)
		}
	}()
	go func() {
		log.Info("metrics server listening", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("shutting down masterd")
	_ = httpSrv.Close()
	_ = metricsSrv.Close()
	return nil
}

// bootstrap seeds the master allocator, staking engine, and dev-fund sink
// on first run. The master's singleton config record doubles as the
// marker for whether all three have already been initialized.
func bootstrap(db *store.DB, cfg config.Config, m *dmaster.Master, staking *lpstaking.Engine, sink *devfund.Sink) error {
	tx := db.Begin()
	already, err := tx.Has([]byte("master:config:_"))
	if err != nil {
		tx.Rollback()
		return err
	}
	if already {
		tx.Rollback()
		return nil
	}

	govToken := dmaster.TokenRef{Address: cfg.GovTokenAddr, CodeHash: cfg.GovTokenHash}
	if err := m.Init(tx, cfg.Admin, govToken); err != nil {
		tx.Rollback()
		return err
	}
	if len(cfg.Schedule) > 0 {
		if _, err := m.SetSchedule(tx, cfg.Admin, cfg.Schedule); err != nil {
			tx.Rollback()
			return err
		}
	}
	if _, err := m.SetWeights(tx, cfg.Admin, 0, []dmaster.WeightEntry{
		{Address: cfg.LPStakingAddr, Weight: 0},
		{Address: cfg.DevFundAddr, Weight: 0},
	}); err != nil {
		tx.Rollback()
		return err
	}

	rewardToken := dmaster.TokenRef{Address: cfg.RewardTokenAddr}
	incToken := dmaster.TokenRef{Address: cfg.IncTokenAddr}
	masterRef := dmaster.TokenRef{Address: cfg.MasterAddr}

	if err := staking.Init(tx, lpstaking.Config{
		Admin:          cfg.Admin,
		RewardToken:    rewardToken,
		IncToken:       incToken,
		Master:         masterRef,
		Deadline:       cfg.Deadline,
		PoolClaimBlock: cfg.PoolClaimBlock,
		PrngSeed:       []byte(cfg.PrngSeed),
	}, 0); err != nil {
		tx.Rollback()
		return err
	}

	if err := sink.Init(tx, devfund.Config{
		Admin:       cfg.Admin,
		Beneficiary: cfg.Beneficiary,
		RewardToken: rewardToken,
		Master:      masterRef,
		OwnAddr:     cfg.DevFundAddr,
	}); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func main() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	_ = v.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	if err := rootCmd.Execute(); err != nil {
		slog.Default().Error("masterd exited with error", "error", err)
		os.Exit(1)
	}
}
