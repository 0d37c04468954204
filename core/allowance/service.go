package allowance

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/trezcool/staffroom/core"
)

const (
	cursorCollection        = "allowance_records"
	welfareCursorCollection = "allowance_records.welfare"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound    = core.NewNotFoundError("allowance record")
	ErrWeekExists  = errors.New("an allowance record already exists for this week")
	errInvalidSpan = "from week must not be greater than to week"
)

type (
	// QueryFilter applies AND operation on its set fields.
	QueryFilter struct {
		Weeks       []int // any of
		FromWeek    int   // inclusive, 0 = unbounded
		ToWeek      int   // inclusive, 0 = unbounded
		BeforeWeek  int   // strictly lower weeks, 0 = unbounded
		WelfareOnly bool  // welfare > 0
		Descending  bool  // by week
		Limit       int   // 0 = no limit
	}

	Repository interface {
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		GetRecordByID(ctx context.Context, id string) (Record, error)
		GetRecordByWeek(ctx context.Context, week int) (Record, error)
		// QueryRecords returns the records matching `filter`, ordered by week.
		QueryRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
		DeleteRecord(ctx context.Context, id string) error
	}

	Service struct {
		repo       Repository
		calc       *Calculator
		cursors    *core.CursorCodec
		pagination core.PaginationConfig
	}
)

func NewService(conf *core.Config, repo Repository) (*Service, error) {
	calc, err := NewCalculator(PolicyFromConfig(conf.Allowance))
	if err != nil {
		return nil, err
	}
	return &Service{
		repo:       repo,
		calc:       calc,
		cursors:    core.NewCursorCodec(conf.SecretKey),
		pagination: conf.Pagination,
	}, nil
}

func (svc *Service) Calculator() *Calculator { return svc.calc }

// checkWeek fails with a *core.ConflictError when another record already holds `week`.
func (svc *Service) checkWeek(ctx context.Context, week int, excludedID string) error {
	rec, err := svc.repo.GetRecordByWeek(ctx, week)
	switch {
	case err == nil:
		if rec.ID == excludedID {
			return nil
		}
		return core.NewConflictError(ErrWeekExists, "week_number", week)
	case core.IsNotFound(err):
		return nil
	default:
		return err
	}
}

// Create validates, computes and stores the allowance of a new week.
func (svc *Service) Create(ctx context.Context, in Input) (Record, error) {
	if err := svc.calc.Validate(in); err != nil {
		return Record{}, err
	}
	if err := svc.checkWeek(ctx, in.WeekNumber, ""); err != nil {
		return Record{}, err
	}
	alloc, err := svc.calc.Allocate(in)
	if err != nil {
		return Record{}, err
	}

	now := NowFunc().UTC()
	rec := Record{
		WeekNumber:          in.WeekNumber,
		Classes:             in.Classes,
		NumberOfTeachers:    in.NumberOfTeachers,
		NumberOfJHSTeachers: in.NumberOfJHSTeachers,
		Allocation:          alloc,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	return svc.repo.CreateRecord(ctx, rec)
}

// Update recomputes an existing record from new figures. Last write wins.
func (svc *Service) Update(ctx context.Context, id string, in Input) (Record, error) {
	orig, err := svc.repo.GetRecordByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if err := svc.calc.Validate(in); err != nil {
		return Record{}, err
	}
	if in.WeekNumber != orig.WeekNumber {
		if err := svc.checkWeek(ctx, in.WeekNumber, orig.ID); err != nil {
			return Record{}, err
		}
	}
	alloc, err := svc.calc.Allocate(in)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:                  orig.ID,
		WeekNumber:          in.WeekNumber,
		Classes:             in.Classes,
		NumberOfTeachers:    in.NumberOfTeachers,
		NumberOfJHSTeachers: in.NumberOfJHSTeachers,
		Allocation:          alloc,
		CreatedAt:           orig.CreatedAt,
		UpdatedAt:           NowFunc().UTC(),
	}
	return svc.repo.UpdateRecord(ctx, rec)
}

// Delete removes one week; other weeks are not affected.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteRecord(ctx, id)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetRecordByID(ctx, id)
}

func (svc *Service) GetByWeek(ctx context.Context, week int) (Record, error) {
	return svc.repo.GetRecordByWeek(ctx, week)
}

func (svc *Service) WeekExists(ctx context.Context, week int) (bool, error) {
	if _, err := svc.repo.GetRecordByWeek(ctx, week); err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// decodeCursor returns the week to resume before. ok is false for unusable cursors.
func (svc *Service) decodeCursor(collection, token string) (week int, ok bool) {
	c, ok := svc.cursors.Decode(collection, token)
	if !ok {
		return 0, false
	}
	week, err := strconv.Atoi(c.Key)
	if err != nil || week <= 0 {
		return 0, false
	}
	return week, true
}

func (svc *Service) page(ctx context.Context, collection string, pr core.PageRequest, welfareOnly bool) ([]Record, string, bool, error) {
	pr = pr.Clean(svc.pagination)
	filter := QueryFilter{WelfareOnly: welfareOnly, Descending: true, Limit: pr.Size + 1}
	if pr.Cursor != "" {
		week, ok := svc.decodeCursor(collection, pr.Cursor)
		if !ok {
			// stale or foreign cursor: no results rather than wrong ones
			return []Record{}, "", false, nil
		}
		filter.BeforeWeek = week
	}

	recs, err := svc.repo.QueryRecords(ctx, filter)
	if err != nil {
		return nil, "", false, err
	}

	var next string
	hasMore := len(recs) > pr.Size
	if hasMore {
		recs = recs[:pr.Size]
		last := recs[len(recs)-1]
		next = svc.cursors.Encode(core.Cursor{Collection: collection, Key: strconv.Itoa(last.WeekNumber), ID: last.ID})
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, next, hasMore, nil
}

// Query lists the records, latest week first.
func (svc *Service) Query(ctx context.Context, pr core.PageRequest) (Page, error) {
	recs, next, hasMore, err := svc.page(ctx, cursorCollection, pr, false)
	if err != nil {
		return Page{}, err
	}
	return Page{Records: recs, NextCursor: next, HasMore: hasMore}, nil
}

// Welfare lists the weeks whose welfare was paid, latest week first.
func (svc *Service) Welfare(ctx context.Context, pr core.PageRequest) (WelfarePage, error) {
	recs, next, hasMore, err := svc.page(ctx, welfareCursorCollection, pr, true)
	if err != nil {
		return WelfarePage{}, err
	}
	entries := make([]WelfareEntry, 0, len(recs))
	for _, r := range recs {
		entries = append(entries, WelfareEntry{ID: r.ID, WeekNumber: r.WeekNumber, Welfare: r.Welfare, DatePaid: r.CreatedAt})
	}
	return WelfarePage{Records: entries, NextCursor: next, HasMore: hasMore}, nil
}

// QueryRange returns the records of weeks `from` to `to` (inclusive), in week order.
func (svc *Service) QueryRange(ctx context.Context, from, to int) ([]Record, error) {
	if from > to {
		return nil, core.NewValidationError(errors.New(errInvalidSpan), core.FieldError{Field: "from_week", Error: errInvalidSpan})
	}
	return svc.repo.QueryRecords(ctx, QueryFilter{FromWeek: from, ToWeek: to})
}

// ByWeeks returns the records of the selected weeks, in week order. Missing weeks are skipped.
func (svc *Service) ByWeeks(ctx context.Context, weeks ...int) ([]Record, error) {
	if len(weeks) == 0 {
		return []Record{}, nil
	}
	return svc.repo.QueryRecords(ctx, QueryFilter{Weeks: weeks})
}

// All returns every record in week order.
func (svc *Service) All(ctx context.Context) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, QueryFilter{})
}

// WeeklyReport returns the record of `week` with its derived totals.
func (svc *Service) WeeklyReport(ctx context.Context, week int) (WeeklyReport, error) {
	rec, err := svc.repo.GetRecordByWeek(ctx, week)
	if err != nil {
		return WeeklyReport{}, err
	}
	return NewWeeklyReport(rec), nil
}

func NewWeeklyReport(rec Record) WeeklyReport {
	return WeeklyReport{
		Record:                  rec,
		TotalGeneral:            TotalGeneral(rec.Classes),
		TotalJHS:                TotalJHS(rec.Classes),
		TotalDeductions:         TotalDeductions(rec.Allocation),
		FormattedTotalSum:       core.FormatCedis(rec.TotalSum),
		FormattedEachTeacher:    core.FormatCedis(rec.EachTeacher),
		FormattedEachJHSTeacher: core.FormatCedis(rec.EachJHSTeacher),
	}
}

// Preview computes the allocation of a form being filled, without storing it.
// The allocation is returned along with the validation error, if any.
func (svc *Service) Preview(in Input) (Allocation, error) {
	alloc, err := svc.calc.Allocate(in)
	if err != nil {
		return Allocation{}, err
	}
	return alloc, svc.calc.Validate(in)
}
