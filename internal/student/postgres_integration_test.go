//go:build integration

package student_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"nbtbook/internal/numbering"
	"nbtbook/internal/student"
	"nbtbook/pkg/identity"
	"nbtbook/pkg/platform/sentinel"
	"nbtbook/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *student.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = student.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "results", "payments", "bookings", "students")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newStudent(year, seq, passport int) *student.Student {
	number, err := identity.GenerateStudentNumber(year, seq)
	s.Require().NoError(err)
	doc, err := identity.NewDocument(identity.DocumentPassport, fmt.Sprintf("P%07d", passport), time.Now())
	s.Require().NoError(err)
	st, err := student.NewStudent(number, doc, "Thandi", "Mokoena", "", time.Now().UTC())
	s.Require().NoError(err)
	return st
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	st := s.newStudent(2025, 1, 1)
	s.Require().NoError(s.store.Create(ctx, st))

	found, err := s.store.FindByNumber(ctx, st.StudentNumber.String())
	s.Require().NoError(err)
	s.Equal(st.ID, found.ID)
	s.Equal(st.Document, found.Document)

	byDoc, err := s.store.FindByDocument(ctx, "passport", "P0000001")
	s.Require().NoError(err)
	s.Equal(st.ID, byDoc.ID)
}

func (s *PostgresStoreSuite) TestDuplicateNumberConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newStudent(2025, 1, 1)))

	err := s.store.Create(ctx, s.newStudent(2025, 1, 2))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestDuplicateDocumentConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newStudent(2025, 1, 1)))

	err := s.store.Create(ctx, s.newStudent(2025, 2, 1))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestHighestStudentNumber() {
	ctx := context.Background()
	_, err := s.store.HighestStudentNumber(ctx, 2025)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Create(ctx, s.newStudent(2025, 7, 1)))
	s.Require().NoError(s.store.Create(ctx, s.newStudent(2025, 42, 2)))
	s.Require().NoError(s.store.Create(ctx, s.newStudent(2024, 99, 3)))

	highest, err := s.store.HighestStudentNumber(ctx, 2025)
	s.Require().NoError(err)
	parsed, err := identity.ParseStudentNumber(highest)
	s.Require().NoError(err)
	s.Equal(42, parsed.Sequence())
}

// TestConcurrentAllocation drives the real allocator against the real store
// and checks that rivals never share a sequence.
func (s *PostgresStoreSuite) TestConcurrentAllocation() {
	ctx := context.Background()
	allocator := numbering.New(s.store)
	const goroutines = 10

	var wg sync.WaitGroup
	var failures atomic.Int32
	seen := sync.Map{}

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			number, err := allocator.Allocate(ctx, func(ctx context.Context, n identity.StudentNumber) error {
				doc, err := identity.NewDocument(identity.DocumentPassport, fmt.Sprintf("C%07d", idx), time.Now())
				if err != nil {
					return err
				}
				st, err := student.NewStudent(n, doc, "Load", "Test", "", time.Now().UTC())
				if err != nil {
					return err
				}
				return s.store.Create(ctx, st)
			})
			if err != nil {
				failures.Add(1)
				return
			}
			if _, loaded := seen.LoadOrStore(number.String(), true); loaded {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load(), "every allocation succeeds with a distinct number")
}

func (s *PostgresStoreSuite) TestUpdateMissingStudent() {
	err := s.store.Update(context.Background(), s.newStudent(2025, 5, 9))
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
