// internal/app/bootstrap/services.go
package bootstrap

import (
	"context"
	"strconv"
	"time"

	commassignstore "github.com/dalemusser/chapterhub/internal/app/store/commassign"
	commlogstore "github.com/dalemusser/chapterhub/internal/app/store/commlogs"
	committeestore "github.com/dalemusser/chapterhub/internal/app/store/committee"
	memberstore "github.com/dalemusser/chapterhub/internal/app/store/members"
	prayerassignstore "github.com/dalemusser/chapterhub/internal/app/store/prayerassign"
	settingsstore "github.com/dalemusser/chapterhub/internal/app/store/settings"
	transferstore "github.com/dalemusser/chapterhub/internal/app/store/transfers"
	"github.com/dalemusser/chapterhub/internal/app/system/claims"
	"github.com/dalemusser/chapterhub/internal/app/system/metrics"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/app/system/rotation"
	"github.com/dalemusser/chapterhub/internal/app/system/tasks"
	"github.com/dalemusser/chapterhub/internal/app/system/transfer"
	"github.com/dalemusser/chapterhub/internal/app/system/txn"
	"github.com/dalemusser/chapterhub/internal/app/system/workers"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Stores is the set of backends the outreach engines run against.
type Stores struct {
	Members       outreach.MemberDirectory
	Staff         outreach.StaffDirectory
	Prayer        outreach.PrayerStore
	Communication outreach.CommunicationStore
	Logs          outreach.LogStore
	Transfers     outreach.TransferStore
	Settings      outreach.SettingsStore
	Tx            outreach.Transactor
}

// MongoStores returns the MongoDB-backed stores for db.
func MongoStores(db *mongo.Database, logger *zap.Logger) Stores {
	return Stores{
		Members:       memberstore.New(db),
		Staff:         committeestore.New(db),
		Prayer:        prayerassignstore.New(db),
		Communication: commassignstore.New(db),
		Logs:          commlogstore.New(db),
		Transfers:     transferstore.New(db),
		Settings:      settingsstore.New(db),
		Tx:            txn.For(db, logger),
	}
}

// Services bundles the engines shared by the HTTP handlers, the scheduler
// and the admin CLI.
type Services struct {
	Stores    Stores
	Metrics   *metrics.Outreach
	Rotation  *rotation.Engine
	Transfer  *transfer.Engine
	Claims    *claims.Service
	Scheduler *workers.Scheduler
}

// NewServices wires the engines over st. m may be nil.
func NewServices(st Stores, logger *zap.Logger, m *metrics.Outreach) *Services {
	rot := rotation.New(rotation.Deps{
		Members:     st.Members,
		Staff:       st.Staff,
		Assignments: st.Prayer,
		Settings:    st.Settings,
		Log:         logger.Named("rotation"),
		Metrics:     m,
	})
	tr := transfer.New(transfer.Deps{
		Members:     st.Members,
		Staff:       st.Staff,
		Assignments: st.Communication,
		Logs:        st.Logs,
		Transfers:   st.Transfers,
		Settings:    st.Settings,
		Tx:          st.Tx,
		Log:         logger.Named("transfer"),
		Metrics:     m,
	})
	return &Services{
		Stores:   st,
		Metrics:  m,
		Rotation: rot,
		Transfer: tr,
		Claims: &claims.Service{
			Members:       st.Members,
			Staff:         st.Staff,
			Prayer:        rot,
			Communication: tr,
			Log:           logger.Named("claims"),
		},
	}
}

// Jobs returns the scheduled jobs, each checked every tick.
func (s *Services) Jobs(logger *zap.Logger, tick time.Duration) []tasks.Job {
	return []tasks.Job{
		tasks.AutoTransferJob(s.Transfer, logger.Named("auto-transfer"), tick),
		tasks.PrayerRotationJob(s.Rotation, s.Stores.Settings, time.Now, logger.Named("prayer-rotation"), tick),
	}
}

// SeedSettings stores the configured threshold and rotation day for any
// key that has never been saved. Saved values are left alone.
func SeedSettings(ctx context.Context, store outreach.SettingsStore, appCfg AppConfig, logger *zap.Logger) error {
	values, err := store.Load(ctx)
	if err != nil {
		return err
	}
	seeds := []struct {
		key   string
		value int
	}{
		{models.SettingUnresponsiveThresholdDays, appCfg.DefaultThresholdDays},
		{models.SettingRotationDayOfMonth, appCfg.DefaultRotationDay},
	}
	for _, s := range seeds {
		if _, ok := values[s.key]; ok || s.value <= 0 {
			continue
		}
		if err := store.Set(ctx, s.key, strconv.Itoa(s.value)); err != nil {
			return err
		}
		logger.Info("seeded app setting", zap.String("key", s.key), zap.Int("value", s.value))
	}
	return nil
}
