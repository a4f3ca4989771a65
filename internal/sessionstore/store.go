package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fetlife-adapter/internal/components/assert"
	"fetlife-adapter/internal/components/chrono"
	"fetlife-adapter/internal/components/telemetry"
	"fetlife-adapter/internal/db"
	"fetlife-adapter/internal/scrapers/fetlife"
)

const (
	report_store_save   = "store.save"
	report_store_load   = "store.load"
	report_store_delete = "store.delete"
	report_store_reseal = "store.reseal"
)

// Store keeps one blob per account id. It holds no session in memory: every Load
// reads storage, every Save is durable before it returns.
type Store struct {
	qry    *db.Queries
	makeTx db.MakeTx
	sealer Sealer
	time   chrono.API
	tel    telemetry.API
}

func New(database *sql.DB, sealer Sealer, time chrono.API, tel telemetry.API) *Store {
	assert.NotNil(database)
	assert.NotNil(sealer)
	assert.NotNil(time)
	assert.NotNil(tel)

	return &Store{
		qry:    db.New(database),
		makeTx: db.NewMakeTx(database),
		sealer: sealer,
		time:   time,
		tel:    telemetry.NewScopedAPI("sessionstore", tel),
	}
}

// Encode returns the blob Save would persist for account.
func (s *Store) Encode(account *fetlife.Account) ([]byte, error) {
	plain, err := encode(account, s.time.Now().Unix())
	if err != nil {
		return nil, err
	}
	return s.sealer.Seal(plain)
}

// Decode is the inverse of Encode.
func (s *Store) Decode(accountId string, data []byte) (*fetlife.Account, error) {
	plain, err := s.sealer.Open(data)
	if err != nil {
		return nil, err
	}
	return decode(accountId, plain)
}

func (s *Store) Save(ctx context.Context, account *fetlife.Account) error {
	assert.NotNil(account)
	assert.NotEmptyStr(account.Id)

	data, err := s.Encode(account)
	if err != nil {
		return fmt.Errorf("save %s: %w", account.Id, err)
	}
	err = s.qry.SaveAccount(ctx, db.SaveAccountParams{
		AccountID: account.Id,
		Blob:      data,
		UpdatedAt: s.time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", account.Id, err)
	}
	s.tel.ReportDebug(report_store_save, "account", account.Id, "cookies", account.Jar.Len())
	return nil
}

// Load returns the stored account, ok is false when nothing is stored under accountId.
func (s *Store) Load(ctx context.Context, accountId string) (account *fetlife.Account, ok bool, err error) {
	row, err := s.qry.GetAccount(ctx, accountId)
	if errors.Is(err, sql.ErrNoRows) {
		s.tel.ReportDebug(report_store_load, "account", accountId, "found", false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", accountId, err)
	}
	account, err = s.Decode(accountId, row.Blob)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", accountId, err)
	}
	s.tel.ReportDebug(report_store_load, "account", accountId, "found", true)
	return account, true, nil
}

// Delete is the only way an account is ever removed.
func (s *Store) Delete(ctx context.Context, accountId string) (bool, error) {
	n, err := s.qry.DeleteAccount(ctx, accountId)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", accountId, err)
	}
	s.tel.ReportDebug(report_store_delete, "account", accountId, "deleted", n > 0)
	return n > 0, nil
}

func (s *Store) AccountIds(ctx context.Context) ([]string, error) {
	return s.qry.ListAccountIds(ctx)
}

// Cycle loads accountId (a fresh anonymous account when none is stored), runs fn and
// saves the account only if fn succeeded and the account is authenticated. The save has
// completed by the time Cycle returns. Concurrent cycles on one account are not
// serialized, the last save wins.
func (s *Store) Cycle(ctx context.Context, accountId string, fn func(*fetlife.Account) error) error {
	account, ok, err := s.Load(ctx, accountId)
	if err != nil {
		return err
	}
	if !ok {
		account = fetlife.NewAccount(accountId)
	}
	if err := fn(account); err != nil {
		return err
	}
	if !account.Authenticated() {
		return nil
	}
	return s.Save(ctx, account)
}

// Reseal rewrites every blob under next in a single transaction and makes next the
// sealer of this store. Blobs that cannot be opened abort the whole operation.
func (s *Store) Reseal(ctx context.Context, next Sealer) error {
	assert.NotNil(next)

	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return fmt.Errorf("reseal: %w", err)
	}
	defer discard()

	ids, err := tx.ListAccountIds(ctx)
	if err != nil {
		return fmt.Errorf("reseal: %w", err)
	}
	for _, id := range ids {
		row, err := tx.GetAccount(ctx, id)
		if err != nil {
			return fmt.Errorf("reseal %s: %w", id, err)
		}
		plain, err := s.sealer.Open(row.Blob)
		if err != nil {
			return fmt.Errorf("reseal %s: %w", id, err)
		}
		sealed, err := next.Seal(plain)
		if err != nil {
			return fmt.Errorf("reseal %s: %w", id, err)
		}
		err = tx.SaveAccount(ctx, db.SaveAccountParams{
			AccountID: id,
			Blob:      sealed,
			UpdatedAt: row.UpdatedAt,
		})
		if err != nil {
			return fmt.Errorf("reseal %s: %w", id, err)
		}
	}
	if err := commit(); err != nil {
		return fmt.Errorf("reseal: %w", err)
	}

	s.sealer = next
	s.tel.ReportCount(report_store_reseal, int64(len(ids)))
	return nil
}
