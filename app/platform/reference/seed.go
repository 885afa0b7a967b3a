package reference

import (
	"context"
	_ "embed"
	"fmt"
	"reflect"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ams/app/database"
)

//go:embed seed.yaml
var seedYAML []byte

// Data is the full reference data set, in insertion order.
type Data struct {
	Genders        []database.Gender        `yaml:"genders"`
	Roles          []database.Role          `yaml:"roles"`
	Cohorts        []database.Cohort        `yaml:"cohorts"`
	Tracks         []database.Track         `yaml:"tracks"`
	WorkingSectors []database.WorkingSector `yaml:"workingSectors"`
	ProfileImages  []database.ProfileImage  `yaml:"profileImages"`
	Countries      []database.Country       `yaml:"countries"`
	States         []database.State         `yaml:"states"`
	Districts      []database.District      `yaml:"districts"`
	Sectors        []database.Sector        `yaml:"sectors"`
}

// Load parses the embedded seed document.
func Load() (*Data, error) {
	var data Data
	if err := yaml.Unmarshal(seedYAML, &data); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}
	return &data, nil
}

type table struct {
	name string
	rows any
}

// tables lists parents before children so foreign keys resolve.
func (d *Data) tables() []table {
	return []table{
		{"genders", &d.Genders},
		{"roles", &d.Roles},
		{"cohorts", &d.Cohorts},
		{"tracks", &d.Tracks},
		{"working_sectors", &d.WorkingSectors},
		{"profile_images", &d.ProfileImages},
		{"countries", &d.Countries},
		{"states", &d.States},
		{"districts", &d.Districts},
		{"sectors", &d.Sectors},
	}
}

// Validate checks that the data set can be loaded into an empty database.
func (d *Data) Validate() error {
	for _, t := range d.tables() {
		seen := map[string]bool{}
		rows := reflect.ValueOf(t.rows).Elem()
		for i := 0; i < rows.Len(); i++ {
			id := rows.Index(i).FieldByName("ID").String()
			if id == "" {
				return fmt.Errorf("%s[%d]: missing id", t.name, i)
			}
			if seen[id] {
				return fmt.Errorf("%s: duplicate id %q", t.name, id)
			}
			seen[id] = true
		}

		defaultID := database.Unspecified
		switch t.name {
		case "genders", "roles":
			continue
		case "profile_images":
			defaultID = database.DefaultProfileImage
		}
		if !seen[defaultID] {
			return fmt.Errorf("%s: missing default row %q", t.name, defaultID)
		}
	}

	if !containsName(d.Genders, database.NotSpecified) {
		return fmt.Errorf("genders: missing default row %q", database.NotSpecified)
	}
	if !containsID(d.Roles, database.DefaultRole) {
		return fmt.Errorf("roles: missing default row %q", database.DefaultRole)
	}

	for _, s := range d.States {
		if !containsID(d.Countries, s.CountryID) {
			return fmt.Errorf("state %s: unknown country %q", s.ID, s.CountryID)
		}
	}
	for _, district := range d.Districts {
		if !containsID(d.States, district.StateID) {
			return fmt.Errorf("district %s: unknown state %q", district.ID, district.StateID)
		}
	}
	for _, s := range d.Sectors {
		if !containsID(d.Districts, s.DistrictID) {
			return fmt.Errorf("sector %s: unknown district %q", s.ID, s.DistrictID)
		}
	}
	return nil
}

func containsID[T any](rows []T, id string) bool {
	for i := range rows {
		if reflect.ValueOf(&rows[i]).Elem().FieldByName("ID").String() == id {
			return true
		}
	}
	return false
}

func containsName(genders []database.Gender, name string) bool {
	for _, g := range genders {
		if g.Name == name {
			return true
		}
	}
	return false
}

// Upserter writes one table of rows atomically, inserting or updating by id.
type Upserter interface {
	Upsert(ctx context.Context, table string, rows any) error
}

type gormUpserter struct {
	db *gorm.DB
}

func NewUpserter(db *gorm.DB) Upserter {
	return &gormUpserter{db: db}
}

func (g *gormUpserter) Upsert(ctx context.Context, table string, rows any) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(rows, 200).Error
	})
}

// Report is the outcome of seeding one table.
type Report struct {
	Table string
	Rows  int
	Err   error
}

// Seed upserts every table of data. A failing table is logged and skipped;
// the remaining tables are still attempted.
func Seed(ctx context.Context, up Upserter, data *Data, log *zap.Logger) []Report {
	var reports []Report
	for _, t := range data.tables() {
		n := reflect.ValueOf(t.rows).Elem().Len()
		if n == 0 {
			continue
		}

		report := Report{Table: t.name, Rows: n}
		if err := up.Upsert(ctx, t.name, t.rows); err != nil {
			log.Error("seeding table failed", zap.String("table", t.name), zap.Error(err))
			report.Rows = 0
			report.Err = err
		} else {
			log.Info("seeded table", zap.String("table", t.name), zap.Int("rows", n))
		}
		reports = append(reports, report)
	}
	return reports
}

// SeedDefaults loads the embedded data set into db.
func SeedDefaults(ctx context.Context, db *gorm.DB, log *zap.Logger) ([]Report, error) {
	data, err := Load()
	if err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return Seed(ctx, NewUpserter(db), data, log), nil
}
