package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/workcal"
	"github.com/emetric-hq/emetric/modules/tasks/domain/aggregates/task"
	"github.com/emetric-hq/emetric/pkg/composables"
	"github.com/emetric-hq/emetric/pkg/routine"
)

const (
	taskFindQuery = `
		SELECT id, name, upline_initiative_id, task_type, routine_option,
		       repeat_every, occurs_days, occurs_month_day_number,
		       occurs_month_day_position, occurs_month_day,
		       routine_round, start_date, start_time, duration_seconds, status,
		       turn_around_time_target_point, turn_around_time_target_point_achieved,
		       quality_target_point, quality_target_point_achieved,
		       quantity_target_point, quantity_target_point_achieved,
		       quantity_target_unit, quantity_target_unit_achieved,
		       target_point, target_point_achieved,
		       rework_limit, rework_remark, rework_end_date, rework_end_time,
		       rating_remark, created_at, updated_at
		FROM tasks`
	taskInsertQuery = `
		INSERT INTO tasks (id, tenant_id, name, upline_initiative_id, task_type, routine_option,
		                   repeat_every, occurs_days, occurs_month_day_number,
		                   occurs_month_day_position, occurs_month_day,
		                   routine_round, start_date, start_time, duration_seconds, status,
		                   turn_around_time_target_point, turn_around_time_target_point_achieved,
		                   quality_target_point, quality_target_point_achieved,
		                   quantity_target_point, quantity_target_point_achieved,
		                   quantity_target_unit, quantity_target_unit_achieved,
		                   target_point, target_point_achieved,
		                   rework_limit, rework_remark, rework_end_date, rework_end_time,
		                   rating_remark, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
		        $31, $32, $33)`
	taskUpdateQuery = `
		UPDATE tasks SET name = $3, start_date = $4, start_time = $5, duration_seconds = $6,
		                 status = $7,
		                 turn_around_time_target_point_achieved = $8,
		                 quality_target_point_achieved = $9,
		                 quantity_target_point_achieved = $10,
		                 quantity_target_unit_achieved = $11,
		                 target_point_achieved = $12,
		                 rework_limit = $13, rework_remark = $14,
		                 rework_end_date = $15, rework_end_time = $16,
		                 rating_remark = $17, updated_at = $18
		WHERE id = $1 AND tenant_id = $2`
	taskTransitionQuery = `
		UPDATE tasks SET status = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = $3`
	taskDeleteQuery = `DELETE FROM tasks WHERE tenant_id = $1 AND id = ANY($2)`
)

type TaskRepository struct{}

func NewTaskRepository() task.Repository {
	return &TaskRepository{}
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, taskFindQuery+" WHERE id = $1 AND tenant_id = $2", id, tenantID)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, task.ErrTaskNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *TaskRepository) Create(ctx context.Context, tasks ...*task.Task) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	for _, t := range tasks {
		p := t.Snapshot()
		if _, err := tx.Exec(ctx, taskInsertQuery,
			p.ID, tenantID, p.Name, p.UplineInitiativeID, string(p.Type), string(p.RoutineOption),
			p.Recurrence.RepeatEvery, weekdaysToInts(p.Recurrence.OccursDays),
			p.Recurrence.OccursMonthDayNumber,
			string(p.Recurrence.OccursMonthPosition), int16(p.Recurrence.OccursMonthDay),
			p.RoutineRound, p.StartDate, pgTime(p.StartTime), int64(p.Duration/time.Second),
			string(p.Status),
			p.TurnAroundTimeTarget, p.TurnAroundTimeAchieved,
			p.QualityTarget, p.QualityAchieved,
			p.QuantityTarget, p.QuantityAchieved,
			p.QuantityTargetUnit, p.QuantityUnitAchieved,
			p.TargetPoint, p.TargetPointAchieved,
			p.ReworkLimit, p.ReworkRemark, nullableDate(p.ReworkEndDate), pgTime(p.ReworkEndTime),
			p.RatingRemark, p.CreatedAt, p.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	p := t.Snapshot()
	tag, err := tx.Exec(ctx, taskUpdateQuery,
		p.ID, tenantID, p.Name, p.StartDate, pgTime(p.StartTime), int64(p.Duration/time.Second),
		string(p.Status),
		p.TurnAroundTimeAchieved, p.QualityAchieved, p.QuantityAchieved, p.QuantityUnitAchieved,
		p.TargetPointAchieved,
		p.ReworkLimit, p.ReworkRemark, nullableDate(p.ReworkEndDate), pgTime(p.ReworkEndTime),
		p.RatingRemark, p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return task.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, taskDeleteQuery, tenantID, ids)
	return err
}

func (r *TaskRepository) PendingFrom(ctx context.Context, name string, from time.Time) ([]*task.Task, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	q := taskFindQuery + `
		WHERE tenant_id = $1 AND name = $2 AND status = $3 AND start_date >= $4
		ORDER BY routine_round`
	rows, err := tx.Query(ctx, q, tenantID, name, string(task.StatusPending), from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TaskRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to task.Status) (bool, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return false, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, taskTransitionQuery, id, tenantID, string(from), string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		p                  task.HydrateParams
		taskType, opt      string
		position           string
		occursDays         []int32
		monthDay           int16
		startTime, rwkTime pgtype.Time
		durationSeconds    int64
		status             string
		reworkEndDate      *time.Time
		tat, tatA          decimal.Decimal
		qual, qualA        decimal.Decimal
		qty, qtyA          decimal.Decimal
		unit, unitA        decimal.Decimal
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.UplineInitiativeID, &taskType, &opt,
		&p.Recurrence.RepeatEvery, &occursDays, &p.Recurrence.OccursMonthDayNumber,
		&position, &monthDay,
		&p.RoutineRound, &p.StartDate, &startTime, &durationSeconds, &status,
		&tat, &tatA, &qual, &qualA, &qty, &qtyA, &unit, &unitA,
		&p.TargetPoint, &p.TargetPointAchieved,
		&p.ReworkLimit, &p.ReworkRemark, &reworkEndDate, &rwkTime,
		&p.RatingRemark, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Type = task.Type(taskType)
	p.RoutineOption = routine.Option(opt)
	p.Recurrence.OccursDays = intsToWeekdays(occursDays)
	p.Recurrence.OccursMonthPosition = routine.DayPosition(position)
	p.Recurrence.OccursMonthDay = time.Weekday(monthDay)
	p.StartTime = timeOfDay(startTime)
	p.Duration = time.Duration(durationSeconds) * time.Second
	p.Status = task.Status(status)
	p.TurnAroundTimeTarget, p.TurnAroundTimeAchieved = tat, tatA
	p.QualityTarget, p.QualityAchieved = qual, qualA
	p.QuantityTarget, p.QuantityAchieved = qty, qtyA
	p.QuantityTargetUnit, p.QuantityUnitAchieved = unit, unitA
	if reworkEndDate != nil {
		p.ReworkEndDate = *reworkEndDate
	}
	p.ReworkEndTime = timeOfDay(rwkTime)
	return task.Hydrate(p), nil
}

func weekdaysToInts(days []time.Weekday) []int32 {
	out := make([]int32, 0, len(days))
	for _, d := range days {
		out = append(out, int32(d))
	}
	return out
}

func intsToWeekdays(days []int32) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		out = append(out, time.Weekday(d))
	}
	return out
}

func timeOfDay(t pgtype.Time) workcal.TimeOfDay {
	minutes := int(t.Microseconds / 60_000_000)
	return workcal.MustTimeOfDay(minutes/60, minutes%60)
}

func pgTime(t workcal.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t.Minutes()) * 60_000_000, Valid: true}
}

func nullableDate(d time.Time) *time.Time {
	if d.IsZero() {
		return nil
	}
	return &d
}
