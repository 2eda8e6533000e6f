package cronjob

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/raids-lab/folio/dao/model"
	"github.com/raids-lab/folio/dao/query"
	"github.com/raids-lab/folio/pkg/assetstore"
	"github.com/raids-lab/folio/pkg/config"
)

func demoZip(t *testing.T) *bytes.Reader {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("index.html")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = w.Write([]byte("<h1>demo</h1>")); err != nil {
		t.Fatal(err)
	}
	if err = zw.Close(); err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(buf.Bytes())
}

func newFixture(t *testing.T) (*assetstore.Store, *query.ProjectDAO, *query.CronJobRecordDAO) {
	cfg := config.Defaults()
	cfg.Database.Driver = query.DriverSQLite
	cfg.Database.SQLite.Path = ":memory:"
	db, err := query.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err = db.AutoMigrate(&model.Project{}, &model.CronJobRecord{}); err != nil {
		t.Fatal(err)
	}
	store, err := assetstore.New(assetstore.Options{Root: filepath.Join(t.TempDir(), "uploads")})
	if err != nil {
		t.Fatal(err)
	}
	return store, query.NewProjectDAO(db), query.NewCronJobRecordDAO(db)
}

func TestOrphanSweeper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store holding a live and an orphaned project", t, func() {
		store, projects, _ := newFixture(t)
		So(projects.Create(ctx, &model.Project{ID: "live", Title: "live"}), ShouldBeNil)
		for _, id := range []string{"live", "orphan"} {
			_, err := store.PutDemoArchive(id, demoZip(t), "demo.zip")
			So(err, ShouldBeNil)
		}
		sweeper := NewOrphanSweeper(store, projects)

		Convey("Sweep removes only the orphan", func() {
			record, err := sweeper.Sweep(ctx)
			So(err, ShouldBeNil)
			So(record.Scanned, ShouldEqual, 2)
			So(record.Removed, ShouldResemble, []string{"orphan"})
			So(record.Failed, ShouldBeEmpty)
			So(store.HasDemo("live"), ShouldBeTrue)
			So(store.HasDemo("orphan"), ShouldBeFalse)

			_, statErr := os.Stat(filepath.Join(store.Root(), "archives", "orphan"))
			So(os.IsNotExist(statErr), ShouldBeTrue)
		})

		Convey("A record created before the sweep takes the lock is kept", func() {
			So(projects.Create(ctx, &model.Project{ID: "orphan", Title: "late"}), ShouldBeNil)
			record, err := sweeper.Sweep(ctx)
			So(err, ShouldBeNil)
			So(record.Removed, ShouldBeEmpty)
			So(store.HasDemo("orphan"), ShouldBeTrue)
		})

		Convey("A second sweep finds nothing to do", func() {
			_, err := sweeper.Sweep(ctx)
			So(err, ShouldBeNil)
			record, err := sweeper.Sweep(ctx)
			So(err, ShouldBeNil)
			So(record.Scanned, ShouldEqual, 1)
			So(record.Removed, ShouldBeEmpty)
		})
	})
}

func TestCronJobManager(t *testing.T) {
	Convey("newCronJobFunc", t, func() {
		store, projects, records := newFixture(t)
		manager := NewCronJobManager(NewOrphanSweeper(store, projects), records)
		_, err := store.PutDemoArchive("orphan", demoZip(t), "demo.zip")
		So(err, ShouldBeNil)

		jobFunc, err := manager.newCronJobFunc(OrphanSweepJobName, CronJobTypeOrphanSweep)
		So(err, ShouldBeNil)
		So(jobFunc, ShouldNotBeNil)

		Convey("running the job stores a record", func() {
			jobFunc()
			So(store.HasDemo("orphan"), ShouldBeFalse)

			saved, err := records.ListRecent(context.Background(), OrphanSweepJobName, 0)
			So(err, ShouldBeNil)
			So(saved, ShouldHaveLength, 1)
			So(saved[0].Status, ShouldEqual, model.CronJobRecordStatusSuccess)
			So(saved[0].Message, ShouldEqual, "scanned 1, removed 1, failed 0")

			var data SweepRecord
			So(json.Unmarshal(saved[0].JobData, &data), ShouldBeNil)
			So(data.Removed, ShouldResemble, []string{"orphan"})
		})

		jobFunc, err = manager.newCronJobFunc("unknown", CronJobType("unknown"))
		So(err, ShouldNotBeNil)
		So(jobFunc, ShouldBeNil)

		_, err = NewCronJobManager(nil, nil).newCronJobFunc(OrphanSweepJobName, CronJobTypeOrphanSweep)
		So(err, ShouldNotBeNil)
	})

	Convey("AddCronJob replaces a job with the same name", t, func() {
		manager := NewCronJobManager(NewOrphanSweeper(nil, nil), nil)

		first, err := manager.AddCronJob(OrphanSweepJobName, "@every 1h", CronJobTypeOrphanSweep)
		So(err, ShouldBeNil)
		second, err := manager.AddCronJob(OrphanSweepJobName, "@every 2h", CronJobTypeOrphanSweep)
		So(err, ShouldBeNil)
		So(second, ShouldNotEqual, first)
		So(manager.JobNames(), ShouldResemble, []string{OrphanSweepJobName})
		So(manager.cron.Entries(), ShouldHaveLength, 1)

		_, err = manager.AddCronJob("broken", "not a spec", CronJobTypeOrphanSweep)
		So(err, ShouldNotBeNil)

		manager.RemoveCronJob(OrphanSweepJobName)
		So(manager.JobNames(), ShouldBeEmpty)
		So(manager.cron.Entries(), ShouldBeEmpty)
	})
}
