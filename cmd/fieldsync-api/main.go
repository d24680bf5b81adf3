package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/llopes04/fieldsync/internal/auth"
	"github.com/llopes04/fieldsync/internal/config"
	"github.com/llopes04/fieldsync/internal/database"
	"github.com/llopes04/fieldsync/internal/logging"
	"github.com/llopes04/fieldsync/internal/offline"
	"github.com/llopes04/fieldsync/internal/records"
	"github.com/llopes04/fieldsync/internal/remote"
	"github.com/llopes04/fieldsync/internal/server"
	"github.com/llopes04/fieldsync/internal/store"
	"github.com/llopes04/fieldsync/internal/sync"
	"github.com/llopes04/fieldsync/internal/users"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fieldsync-api",
		Short: "Field service backend with offline-first sync",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite record store path")
	cmd.PersistentFlags().String("offline-database-path", defaults.GetString("database.offline_path"), "SQLite offline action log path")
	cmd.PersistentFlags().String("firestore-project-id", defaults.GetString("firestore.project_id"), "Firestore project id")
	cmd.PersistentFlags().String("firestore-credentials-path", defaults.GetString("firestore.credentials_path"), "Firestore service-account credentials file")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.offline_path", "offline-database-path")
	bindFlag(cmd, "firestore.project_id", "firestore-project-id")
	bindFlag(cmd, "firestore.credentials_path", "firestore-credentials-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "session.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	recordsDB, err := database.OpenSQLite(appConfig.DatabasePath, logger, store.Migrations()...)
	if err != nil {
		return err
	}
	recordsSQL, err := recordsDB.DB()
	if err != nil {
		return err
	}
	defer recordsSQL.Close()

	offlineDB, err := database.OpenSQLite(appConfig.OfflineDatabasePath, logger, offline.Migrations()...)
	if err != nil {
		return err
	}
	offlineSQL, err := offlineDB.DB()
	if err != nil {
		return err
	}
	defer offlineSQL.Close()

	recordStore, err := store.New(store.Config{Database: recordsDB, Logger: logger})
	if err != nil {
		return err
	}
	actionLog, err := offline.NewLog(offline.Config{Database: offlineDB, Logger: logger})
	if err != nil {
		return err
	}

	remoteStore, err := remote.NewStore(ctx, remote.Config{
		ProjectID:       appConfig.FirestoreProjectID,
		CredentialsPath: appConfig.FirestoreCredential,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer remoteStore.Close() //nolint:errcheck

	engine, err := sync.NewEngine(sync.Config{
		Clients:       recordStore.Clients,
		Orders:        recordStore.Orders,
		Users:         recordStore.Users,
		RTIs:          recordStore.RTIs,
		RemoteClients: remoteStore.Collection(records.KindClient),
		RemoteOrders:  remoteStore.Collection(records.KindServiceOrder),
		RemoteUsers:   remoteStore.Collection(records.KindUser),
		RemoteRTIs:    remoteStore.Collection(records.KindRTI),
		Offline:       actionLog,
		Policy:        appConfig.MatchPolicy(),
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	accounts, err := users.NewService(users.ServiceConfig{Users: recordStore.Users, Logger: logger})
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SessionSigningKey),
		Issuer:        appConfig.TokenIssuer,
		Audience:      appConfig.TokenAudience,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Accounts: accounts,
		Tokens:   tokens,
		Engine:   engine,
		Store:    recordStore,
		Offline:  actionLog,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
