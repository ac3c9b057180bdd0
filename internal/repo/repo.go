package repo

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/lavrd/wattle-files-tg/internal/types"
)

const (
	driver = "sqlite3"

	ModeMemory = "memory"
	ModeRWC    = "rwc"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Repository is a storage for users and the course catalogue.
// Every call is committed on its own.
type Repository interface {
	FindUser(ctx context.Context, id int64) (types.User, error)
	CreateUser(ctx context.Context, user types.User) (types.User, error)
	UpdateUser(ctx context.Context, id int64, mutation types.UserMutation) (types.User, error)

	ListSemesters(ctx context.Context) ([]string, error)
	ListCourses(ctx context.Context, semester string) ([]types.Course, error)
	FindCourse(ctx context.Context, id int64) (types.Course, error)

	ListFiles(ctx context.Context, courseID int64) ([]types.File, error)
	CreateFile(ctx context.Context, file types.File) (types.File, error)

	ListMedia(ctx context.Context, courseID int64) ([]types.Media, error)
	HasMedia(ctx context.Context, courseID int64) (bool, error)

	Ping(ctx context.Context) error
}

func OpenDBAndMigrate(filePath, mode string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?cache=shared&mode=%s&_foreign_keys=1",
		filePath, mode,
	)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err = Migrate(db); err != nil {
		return nil, err
	}
	// SQLite handles one writer at a time anyway.
	db.SetMaxOpenConns(1)
	return sqlx.NewDb(db, driver), nil
}

// Migrate applies embedded migrations which are not applied yet.
func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations source: %w", err)
	}
	drv, err := migratesqlite3.WithInstance(db, &migratesqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create new driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, driver, drv)
	if err != nil {
		return fmt.Errorf("failed to create new migration manager: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to do database structure migration: %w", err)
	}
	return nil
}

func New(db *sqlx.DB) Repository {
	return &repository{db: db}
}

//nolint:govet // for better reading and keep as it in .sql files
type user struct {
	ID               int64         `db:"id"`
	FirstName        string        `db:"first_name"`
	LastName         string        `db:"last_name"`
	Username         string        `db:"username"`
	Title            string        `db:"title"`
	Notifications    bool          `db:"notifications"`
	Semester         string        `db:"semester"`
	CurrentSelection sql.NullInt64 `db:"current_selection"`
	// Number of updates received from the user.
	Counter   int64     `db:"counter"`
	CreatedAt time.Time `db:"created_at"`
	// Last update from the user in the bot.
	LastEventAt time.Time `db:"last_event_at"`
}

func (u user) toTypes() types.User {
	return types.User{
		CreatedAt:        u.CreatedAt,
		LastEventAt:      u.LastEventAt,
		CurrentSelection: u.CurrentSelection,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Username:         u.Username,
		Title:            u.Title,
		Semester:         u.Semester,
		ID:               u.ID,
		Counter:          u.Counter,
		Notifications:    u.Notifications,
	}
}

//nolint:govet // for better reading and keep as it in .sql files
type course struct {
	ID       int64          `db:"id"`
	Name     string         `db:"name"`
	Semester string         `db:"semester"`
	URL      sql.NullString `db:"url"`
}

func (c course) toTypes() types.Course {
	return types.Course{ID: c.ID, Name: c.Name, Semester: c.Semester, URL: c.URL.String}
}

//nolint:govet // for better reading and keep as it in .sql files
type file struct {
	ID     int64  `db:"id"`
	Course int64  `db:"course"`
	Title  string `db:"title"`
	// Message id in the archive channel, "0" if there is no archived copy.
	MessageID string    `db:"message_id"`
	URL       string    `db:"url"`
	Date      time.Time `db:"date"`
}

func (f file) toTypes() types.File {
	return types.File{
		Date:      f.Date,
		Title:     f.Title,
		MessageID: f.MessageID,
		URL:       f.URL,
		ID:        f.ID,
		Course:    f.Course,
	}
}

//nolint:govet // for better reading and keep as it in .sql files
type media struct {
	ID        int64          `db:"id"`
	Course    int64          `db:"course"`
	Name      string         `db:"name"`
	Date      time.Time      `db:"date"`
	PlayerURL string         `db:"playerurl"`
	MP4URL1   sql.NullString `db:"mp4url1"`
	MP4URL2   sql.NullString `db:"mp4url2"`
}

func (m media) toTypes() types.Media {
	return types.Media{
		Date:      m.Date,
		Name:      m.Name,
		PlayerURL: m.PlayerURL,
		MP4URL1:   m.MP4URL1.String,
		MP4URL2:   m.MP4URL2.String,
		ID:        m.ID,
		Course:    m.Course,
	}
}

type repository struct {
	db *sqlx.DB
}

func (r *repository) FindUser(ctx context.Context, id int64) (types.User, error) {
	row := user{}
	if err := r.db.GetContext(ctx, &row, "select * from users where id = $1", id); err != nil {
		return types.User{}, fmt.Errorf("failed to get: %w", notFound(err))
	}
	return row.toTypes(), nil
}

func (r *repository) CreateUser(ctx context.Context, u types.User) (types.User, error) {
	row := user{}
	var selection any
	if u.CurrentSelection.Valid {
		selection = u.CurrentSelection.Int64
	}
	if err := r.db.GetContext(ctx, &row, `
		insert into users (id, first_name, last_name, username, title, notifications, semester, current_selection, counter)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) returning *
	`,
		u.ID, u.FirstName, u.LastName, u.Username, u.Title, u.Notifications, u.Semester, selection, u.Counter,
	); err != nil {
		if isConstraint(err, sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique) {
			return types.User{}, fmt.Errorf("failed to insert %d: %w", u.ID, types.ErrDuplicateUser)
		}
		return types.User{}, fmt.Errorf("failed to get: %w", err)
	}
	return row.toTypes(), nil
}

func (r *repository) UpdateUser(ctx context.Context, id int64, mutation types.UserMutation) (types.User, error) {
	sets := []string{"last_event_at = current_timestamp"}
	args := make([]any, 0, 4)
	if mutation.IncrementCounter {
		sets = append(sets, "counter = counter + 1")
	}
	if mutation.CurrentSelection != nil {
		sets = append(sets, "current_selection = ?")
		args = append(args, *mutation.CurrentSelection)
	}
	if mutation.Notifications != nil {
		sets = append(sets, "notifications = ?")
		args = append(args, *mutation.Notifications)
	}
	if mutation.Semester != nil {
		sets = append(sets, "semester = ?")
		args = append(args, *mutation.Semester)
	}
	args = append(args, id)

	row := user{}
	query := fmt.Sprintf("update users set %s where id = ? returning *", strings.Join(sets, ", "))
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return types.User{}, fmt.Errorf("failed to update: %w", notFound(err))
	}
	return row.toTypes(), nil
}

func (r *repository) ListSemesters(ctx context.Context) ([]string, error) {
	semesters := make([]string, 0)
	if err := r.db.SelectContext(
		ctx, &semesters, "select distinct semester from courses order by semester",
	); err != nil {
		return nil, fmt.Errorf("failed to select: %w", err)
	}
	return semesters, nil
}

func (r *repository) ListCourses(ctx context.Context, semester string) ([]types.Course, error) {
	rows := make([]course, 0)
	if err := r.db.SelectContext(
		ctx, &rows, "select * from courses where semester = $1 order by id", semester,
	); err != nil {
		return nil, fmt.Errorf("failed to select: %w", err)
	}
	courses := make([]types.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toTypes())
	}
	return courses, nil
}

func (r *repository) FindCourse(ctx context.Context, id int64) (types.Course, error) {
	row := course{}
	if err := r.db.GetContext(ctx, &row, "select * from courses where id = $1", id); err != nil {
		return types.Course{}, fmt.Errorf("failed to get: %w", notFound(err))
	}
	return row.toTypes(), nil
}

func (r *repository) ListFiles(ctx context.Context, courseID int64) ([]types.File, error) {
	rows := make([]file, 0)
	if err := r.db.SelectContext(
		ctx, &rows, "select * from files where course = $1 order by id", courseID,
	); err != nil {
		return nil, fmt.Errorf("failed to select: %w", err)
	}
	files := make([]types.File, 0, len(rows))
	for _, row := range rows {
		files = append(files, row.toTypes())
	}
	return files, nil
}

func (r *repository) CreateFile(ctx context.Context, f types.File) (types.File, error) {
	if f.MessageID == "" {
		f.MessageID = types.NoArchiveMessage
	}
	if f.Date.IsZero() {
		f.Date = time.Now().UTC()
	}
	row := file{}
	var err error
	if f.ID == 0 {
		err = r.db.GetContext(ctx, &row, `
			insert into files (course, title, message_id, url, date) VALUES ($1, $2, $3, $4, $5) returning *
		`,
			f.Course, f.Title, f.MessageID, f.URL, f.Date,
		)
	} else {
		err = r.db.GetContext(ctx, &row, `
			insert into files (id, course, title, message_id, url, date) VALUES ($1, $2, $3, $4, $5, $6) returning *
		`,
			f.ID, f.Course, f.Title, f.MessageID, f.URL, f.Date,
		)
	}
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique) {
			return types.File{}, fmt.Errorf("failed to insert %d: %w", f.ID, types.ErrDuplicateFileID)
		}
		return types.File{}, fmt.Errorf("failed to get: %w", err)
	}
	return row.toTypes(), nil
}

func (r *repository) ListMedia(ctx context.Context, courseID int64) ([]types.Media, error) {
	rows := make([]media, 0)
	if err := r.db.SelectContext(
		ctx, &rows, "select * from media where course = $1 order by id", courseID,
	); err != nil {
		return nil, fmt.Errorf("failed to select: %w", err)
	}
	multimedia := make([]types.Media, 0, len(rows))
	for _, row := range rows {
		multimedia = append(multimedia, row.toTypes())
	}
	return multimedia, nil
}

func (r *repository) HasMedia(ctx context.Context, courseID int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(
		ctx, &exists, "select exists(select 1 from media where course = $1)", courseID,
	); err != nil {
		return false, fmt.Errorf("failed to get: %w", err)
	}
	return exists, nil
}

func (r *repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return types.ErrNotFound
	}
	return err
}

func isConstraint(err error, codes ...sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	for _, code := range codes {
		if sqliteErr.ExtendedCode == code {
			return true
		}
	}
	return false
}
