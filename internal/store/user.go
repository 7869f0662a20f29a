package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const (
	tableUsers = "users"

	userColID          = "user_id"
	userColUsername    = "username"
	userColLevel       = "level"
	userColDailyPuzzle = "daily_puzzle"
	userColLastSeen    = "last_seen"
)

var userColumns = []string{userColID, userColUsername, userColLevel, userColDailyPuzzle, userColLastSeen}

// userRepo implements UserRepo with ent's SQL builder.
type userRepo struct {
	drv *entsql.Driver
	now func() time.Time
}

func (r *userRepo) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *userRepo) Upsert(ctx context.Context, u UserUpdate) error {
	username := ""
	if u.Username != nil {
		username = *u.Username
	}
	daily := 1
	if u.DailyPuzzle != nil {
		daily = boolToInt(*u.DailyPuzzle)
	}

	// Columns refreshed on conflict. last_seen always moves forward.
	update := []string{userColLastSeen}
	if u.Username != nil {
		update = append(update, userColUsername)
	}
	if u.Level != nil {
		update = append(update, userColLevel)
	}
	if u.DailyPuzzle != nil {
		update = append(update, userColDailyPuzzle)
	}

	query, args := builder().Insert(tableUsers).
		Columns(userColumns...).
		Values(u.ID, username, nullableLevel(u.Level), daily, r.clock().Unix()).
		OnConflict(
			entsql.ConflictColumns(userColID),
			entsql.ResolveWith(func(set *entsql.UpdateSet) {
				for _, c := range update {
					set.SetExcluded(c)
				}
			}),
		).
		Query()

	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	return nil
}

func (r *userRepo) Get(ctx context.Context, id int64) (*User, error) {
	b := builder()
	query, args := b.Select(userColumns...).
		From(b.Table(tableUsers)).
		Where(entsql.EQ(userColID, id)).
		Limit(1).
		Query()

	users, err := r.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return &users[0], nil
}

func (r *userRepo) ListDailyPuzzle(ctx context.Context) ([]User, error) {
	b := builder()
	query, args := b.Select(userColumns...).
		From(b.Table(tableUsers)).
		Where(entsql.EQ(userColDailyPuzzle, 1)).
		OrderBy(userColID).
		Query()

	users, err := r.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("list daily puzzle users: %w", err)
	}
	return users, nil
}

func (r *userRepo) query(ctx context.Context, query string, args []any) ([]User, error) {
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var (
			u        User
			level    sql.NullString
			daily    int64
			lastSeen int64
		)
		if err := rows.Scan(&u.ID, &u.Username, &level, &daily, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Level = level.String
		u.DailyPuzzle = daily != 0
		u.LastSeen = time.Unix(lastSeen, 0).UTC()
		users = append(users, u)
	}
	return users, rows.Err()
}

// nullableLevel maps an unset or empty level to NULL so the CHECK passes.
func nullableLevel(level *string) any {
	if level == nil || *level == "" {
		return nil
	}
	return *level
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
