package loans

import (
	"context"
	"testing"
	"time"

	"github.com/diegocastellanos/booklend-backend/pkg/config"
	"github.com/diegocastellanos/booklend-backend/pkg/db/models"
	"github.com/diegocastellanos/booklend-backend/pkg/enums"
	pkgerrors "github.com/diegocastellanos/booklend-backend/pkg/errors"
	"github.com/diegocastellanos/booklend-backend/pkg/outbox"
	"github.com/diegocastellanos/booklend-backend/pkg/outbox/payloads"
	"github.com/diegocastellanos/booklend-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubLoansRepo struct {
	user        *models.User
	book        *models.Book
	loan        *models.Loan
	activeCount int
	authorNames []string
	created     *models.Loan
	updates     map[string]any
	deletedID   uuid.UUID
}

func (s *stubLoansRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubLoansRepo) CreateLoan(ctx context.Context, loan *models.Loan) (*models.Loan, error) {
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	s.created = loan
	return loan, nil
}

func (s *stubLoansRepo) FindLoan(ctx context.Context, loanID uuid.UUID) (*models.Loan, error) {
	if s.loan == nil || s.loan.ID != loanID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.loan, nil
}

func (s *stubLoansRepo) CountActiveLoans(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.activeCount, nil
}

func (s *stubLoansRepo) CountActiveLoansForBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	return 0, nil
}

func (s *stubLoansRepo) UpdateLoan(ctx context.Context, loanID uuid.UUID, updates map[string]any) error {
	if s.loan == nil || s.loan.ID != loanID {
		return gorm.ErrRecordNotFound
	}
	s.updates = updates
	if status, ok := updates["status"].(enums.LoanStatus); ok {
		s.loan.Status = status
	}
	return nil
}

func (s *stubLoansRepo) TransitionLoan(ctx context.Context, loanID uuid.UUID, from enums.LoanStatus, updates map[string]any) error {
	if s.loan == nil || s.loan.ID != loanID || s.loan.Status != from {
		return gorm.ErrRecordNotFound
	}
	s.updates = updates
	if status, ok := updates["status"].(enums.LoanStatus); ok {
		s.loan.Status = status
	}
	return nil
}

func (s *stubLoansRepo) DeleteLoan(ctx context.Context, loanID uuid.UUID) error {
	s.deletedID = loanID
	return nil
}

func (s *stubLoansRepo) ListLoansByUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters LoanFilters) (*LoanList, error) {
	return &LoanList{}, nil
}

func (s *stubLoansRepo) ListLoans(ctx context.Context, params pagination.Params, filters LoanFilters) (*LoanList, error) {
	return &LoanList{}, nil
}

func (s *stubLoansRepo) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubLoansRepo) FindBookWithInventory(ctx context.Context, bookID uuid.UUID) (*models.Book, error) {
	if s.book == nil || s.book.ID != bookID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.book, nil
}

func (s *stubLoansRepo) FindAuthorNames(ctx context.Context, authorIDs []uuid.UUID) ([]string, error) {
	return s.authorNames, nil
}

func (s *stubLoansRepo) FindOverdueLoans(ctx context.Context, cutoff time.Time, limit int) ([]models.Loan, error) {
	return nil, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type ledgerCall struct {
	bookID uuid.UUID
	qty    int
}

type stubLedger struct {
	reserves   []ledgerCall
	releases   []ledgerCall
	reserveErr error
	releaseErr error
}

func (s *stubLedger) Reserve(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, qty int) error {
	if s.reserveErr != nil {
		return s.reserveErr
	}
	s.reserves = append(s.reserves, ledgerCall{bookID: bookID, qty: qty})
	return nil
}

func (s *stubLedger) Release(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, qty int) error {
	if s.releaseErr != nil {
		return s.releaseErr
	}
	s.releases = append(s.releases, ledgerCall{bookID: bookID, qty: qty})
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func strPtr(v string) *string {
	return &v
}

func borrower(role enums.UserRole) *models.User {
	return &models.User{
		ID:        uuid.New(),
		Email:     "reader@example.com",
		FirstName: "Maya",
		LastName:  "Reyes",
		Role:      role,
	}
}

func borrowerWithPhone(role enums.UserRole) *models.User {
	user := borrower(role)
	user.Contact.Phone = strPtr("+34 600 111 222")
	return user
}

func stockedBook(available int) *models.Book {
	id := uuid.New()
	return &models.Book{
		ID:       id,
		Title:    "The Left Hand of Darkness",
		IsActive: true,
		Inventory: &models.BookInventory{
			BookID:       id,
			AvailableQty: available,
		},
	}
}

func newTestService(t *testing.T, repo Repository, outboxSvc outboxPublisher, ledger InventoryLedger) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, outboxSvc, ledger, nil, config.LoansConfig{LoanPeriodDays: 30})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func assertCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != want {
		t.Fatalf("expected %s got %v", want, err)
	}
}

func TestRequestCreatesPendingLoan(t *testing.T) {
	user := borrowerWithPhone(enums.UserRoleStudent)
	book := stockedBook(5)
	repo := &stubLoansRepo{user: user, book: book, authorNames: []string{"Ursula K. Le Guin"}}
	outboxStub := &stubOutboxPublisher{}
	ledger := &stubLedger{}
	svc := newTestService(t, repo, outboxStub, ledger)

	loan, err := svc.Request(context.Background(), RequestInput{
		RequesterID: user.ID,
		BookID:      book.ID,
		Qty:         2,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if loan.Status != enums.LoanStatusPending {
		t.Fatalf("expected pending got %s", loan.Status)
	}
	if len(ledger.reserves) != 1 || ledger.reserves[0].qty != 2 {
		t.Fatalf("unexpected reserve calls %+v", ledger.reserves)
	}
	wantDue := loan.RequestDate.Add(30 * 24 * time.Hour)
	if !loan.DueDate.Equal(wantDue) {
		t.Fatalf("expected due date %v got %v", wantDue, loan.DueDate)
	}
	if loan.Requester.Name != "Maya Reyes" || loan.Requester.Phone == nil {
		t.Fatalf("unexpected requester snapshot %+v", loan.Requester)
	}
	if loan.Book.Title != book.Title || loan.Book.AvailableQty != 5 {
		t.Fatalf("unexpected book snapshot %+v", loan.Book)
	}
	if len(loan.Book.Authors) != 1 || loan.Book.Authors[0] != "Ursula K. Le Guin" {
		t.Fatalf("unexpected authors %+v", loan.Book.Authors)
	}
	if len(outboxStub.events) != 1 || outboxStub.events[0].EventType != enums.EventLoanRequested {
		t.Fatalf("unexpected outbox events %+v", outboxStub.events)
	}
}

func TestRequestFailsWithoutPhone(t *testing.T) {
	user := borrower(enums.UserRoleStudent)
	book := stockedBook(5)
	repo := &stubLoansRepo{user: user, book: book}
	ledger := &stubLedger{}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, ledger)

	_, err := svc.Request(context.Background(), RequestInput{
		RequesterID: user.ID,
		BookID:      book.ID,
		Qty:         1,
	})
	assertCode(t, err, pkgerrors.CodeValidation)
	if len(ledger.reserves) != 0 {
		t.Fatal("no reservation expected on validation failure")
	}
	if repo.created != nil {
		t.Fatal("no loan expected on validation failure")
	}
}

func TestRequestFailsAtRoleLimit(t *testing.T) {
	user := borrowerWithPhone(enums.UserRoleStudent)
	book := stockedBook(5)
	repo := &stubLoansRepo{user: user, book: book, activeCount: 3}
	ledger := &stubLedger{}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, ledger)

	_, err := svc.Request(context.Background(), RequestInput{
		RequesterID: user.ID,
		BookID:      book.ID,
		Qty:         1,
	})
	assertCode(t, err, pkgerrors.CodeForbidden)
	if len(ledger.reserves) != 0 {
		t.Fatal("no reservation expected when limit reached")
	}
}

func TestRequestForbiddenForAdministrator(t *testing.T) {
	user := borrowerWithPhone(enums.UserRoleAdmin)
	book := stockedBook(5)
	repo := &stubLoansRepo{user: user, book: book}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubLedger{})

	_, err := svc.Request(context.Background(), RequestInput{
		RequesterID: user.ID,
		BookID:      book.ID,
		Qty:         1,
	})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestRequestFailsWhenQuantityExceedsAvailable(t *testing.T) {
	user := borrowerWithPhone(enums.UserRoleTeacher)
	book := stockedBook(2)
	repo := &stubLoansRepo{user: user, book: book}
	ledger := &stubLedger{}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, ledger)

	_, err := svc.Request(context.Background(), RequestInput{
		RequesterID: user.ID,
		BookID:      book.ID,
		Qty:         3,
	})
	assertCode(t, err, pkgerrors.CodeValidation)
	if len(ledger.reserves) != 0 {
		t.Fatal("no reservation expected when quantity exceeds available")
	}
}

func TestRequestUnknownBook(t *testing.T) {
	user := borrowerWithPhone(enums.UserRoleStudent)
	repo := &stubLoansRepo{user: user}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubLedger{})

	_, err := svc.Request(context.Background(), RequestInput{
		RequesterID: user.ID,
		BookID:      uuid.New(),
		Qty:         1,
	})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestRequestSurfacesLedgerConflict(t *testing.T) {
	user := borrowerWithPhone(enums.UserRoleStudent)
	book := stockedBook(2)
	repo := &stubLoansRepo{user: user, book: book}
	ledger := &stubLedger{reserveErr: pkgerrors.New(pkgerrors.CodeInsufficient, "not enough copies available")}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, ledger)

	_, err := svc.Request(context.Background(), RequestInput{
		RequesterID: user.ID,
		BookID:      book.ID,
		Qty:         2,
	})
	assertCode(t, err, pkgerrors.CodeInsufficient)
	if repo.created != nil {
		t.Fatal("no loan expected when reservation fails")
	}
}

func pendingLoan(qty int) *models.Loan {
	return &models.Loan{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		BookID:       uuid.New(),
		RequestedQty: qty,
		Status:       enums.LoanStatusPending,
		RequestDate:  time.Now().UTC().Add(-time.Hour),
		DueDate:      time.Now().UTC().Add(29 * 24 * time.Hour),
	}
}

func TestDecisionApprove(t *testing.T) {
	loan := pendingLoan(1)
	repo := &stubLoansRepo{loan: loan}
	outboxStub := &stubOutboxPublisher{}
	ledger := &stubLedger{}
	svc := newTestService(t, repo, outboxStub, ledger)

	err := svc.Decision(context.Background(), DecisionInput{
		LoanID:      loan.ID,
		Decision:    enums.LoanDecisionApprove,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if loan.Status != enums.LoanStatusApproved {
		t.Fatalf("expected approved got %s", loan.Status)
	}
	if len(ledger.releases) != 0 {
		t.Fatal("approve must not touch inventory")
	}
	if len(outboxStub.events) != 1 || outboxStub.events[0].EventType != enums.EventLoanApproved {
		t.Fatalf("unexpected outbox events %+v", outboxStub.events)
	}
}

func TestDecisionRejectReleasesInventory(t *testing.T) {
	loan := pendingLoan(2)
	repo := &stubLoansRepo{loan: loan}
	outboxStub := &stubOutboxPublisher{}
	ledger := &stubLedger{}
	svc := newTestService(t, repo, outboxStub, ledger)

	err := svc.Decision(context.Background(), DecisionInput{
		LoanID:      loan.ID,
		Decision:    enums.LoanDecisionReject,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if loan.Status != enums.LoanStatusRejected {
		t.Fatalf("expected rejected got %s", loan.Status)
	}
	if len(ledger.releases) != 1 || ledger.releases[0].qty != 2 || ledger.releases[0].bookID != loan.BookID {
		t.Fatalf("unexpected release calls %+v", ledger.releases)
	}
	if len(outboxStub.events) != 1 || outboxStub.events[0].EventType != enums.EventLoanRejected {
		t.Fatalf("unexpected outbox events %+v", outboxStub.events)
	}
}

func TestDecisionRequiresAdministrator(t *testing.T) {
	loan := pendingLoan(1)
	repo := &stubLoansRepo{loan: loan}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubLedger{})

	err := svc.Decision(context.Background(), DecisionInput{
		LoanID:      loan.ID,
		Decision:    enums.LoanDecisionApprove,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleTeacher,
	})
	assertCode(t, err, pkgerrors.CodeForbidden)
	if loan.Status != enums.LoanStatusPending {
		t.Fatalf("loan must stay pending, got %s", loan.Status)
	}
}

func TestDecisionSecondRejectConflicts(t *testing.T) {
	loan := pendingLoan(1)
	repo := &stubLoansRepo{loan: loan}
	outboxStub := &stubOutboxPublisher{}
	ledger := &stubLedger{}
	svc := newTestService(t, repo, outboxStub, ledger)

	input := DecisionInput{
		LoanID:      loan.ID,
		Decision:    enums.LoanDecisionReject,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleAdmin,
	}
	if err := svc.Decision(context.Background(), input); err != nil {
		t.Fatalf("first reject failed: %v", err)
	}
	err := svc.Decision(context.Background(), input)
	assertCode(t, err, pkgerrors.CodeStateConflict)
	if len(ledger.releases) != 1 {
		t.Fatalf("copies must be restored exactly once, got %d releases", len(ledger.releases))
	}
	if len(outboxStub.events) != 1 {
		t.Fatalf("expected a single event, got %d", len(outboxStub.events))
	}
}

// staleReadLoansRepo freezes every FindLoan at a fixed status, the snapshot
// a concurrent transaction sees before the first writer commits. Only the
// conditional transition consults the live row.
type staleReadLoansRepo struct {
	*stubLoansRepo
	seenStatus enums.LoanStatus
}

func (s *staleReadLoansRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *staleReadLoansRepo) FindLoan(ctx context.Context, loanID uuid.UUID) (*models.Loan, error) {
	loan, err := s.stubLoansRepo.FindLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	stale := *loan
	stale.Status = s.seenStatus
	return &stale, nil
}

func TestDecisionConcurrentRejectsReleaseOnce(t *testing.T) {
	loan := pendingLoan(3)
	repo := &staleReadLoansRepo{
		stubLoansRepo: &stubLoansRepo{loan: loan},
		seenStatus:    enums.LoanStatusPending,
	}
	outboxStub := &stubOutboxPublisher{}
	ledger := &stubLedger{}
	svc := newTestService(t, repo, outboxStub, ledger)

	input := DecisionInput{
		LoanID:      loan.ID,
		Decision:    enums.LoanDecisionReject,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleAdmin,
	}
	if err := svc.Decision(context.Background(), input); err != nil {
		t.Fatalf("first reject failed: %v", err)
	}
	// Second caller still reads pending; the conditional write must lose.
	err := svc.Decision(context.Background(), input)
	assertCode(t, err, pkgerrors.CodeStateConflict)
	if got := len(ledger.releases); got != 1 {
		t.Fatalf("stock released %d times for one loan, want exactly once", got)
	}
	if len(outboxStub.events) != 1 {
		t.Fatalf("expected a single event, got %d", len(outboxStub.events))
	}
}

func TestReturnConcurrentCallsReleaseOnce(t *testing.T) {
	loan := pendingLoan(2)
	loan.Status = enums.LoanStatusApproved
	repo := &staleReadLoansRepo{
		stubLoansRepo: &stubLoansRepo{loan: loan},
		seenStatus:    enums.LoanStatusApproved,
	}
	outboxStub := &stubOutboxPublisher{}
	ledger := &stubLedger{}
	svc := newTestService(t, repo, outboxStub, ledger)

	input := ReturnInput{
		LoanID:      loan.ID,
		ActorUserID: loan.UserID,
		ActorRole:   enums.UserRoleStudent,
	}
	if err := svc.Return(context.Background(), input); err != nil {
		t.Fatalf("first return failed: %v", err)
	}
	err := svc.Return(context.Background(), input)
	assertCode(t, err, pkgerrors.CodeStateConflict)
	if got := len(ledger.releases); got != 1 {
		t.Fatalf("stock released %d times for one loan, want exactly once", got)
	}
	if len(outboxStub.events) != 1 {
		t.Fatalf("expected a single event, got %d", len(outboxStub.events))
	}
}

func TestDecisionInvalidState(t *testing.T) {
	loan := pendingLoan(1)
	loan.Status = enums.LoanStatusCompleted
	repo := &stubLoansRepo{loan: loan}
	ledger := &stubLedger{}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, ledger)

	err := svc.Decision(context.Background(), DecisionInput{
		LoanID:      loan.ID,
		Decision:    enums.LoanDecisionReject,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleAdmin,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
	if len(ledger.releases) != 0 {
		t.Fatal("no release expected on state conflict")
	}
}

func TestReturnCompletesLoan(t *testing.T) {
	loan := pendingLoan(1)
	loan.Status = enums.LoanStatusApproved
	repo := &stubLoansRepo{loan: loan}
	outboxStub := &stubOutboxPublisher{}
	ledger := &stubLedger{}
	svc := newTestService(t, repo, outboxStub, ledger)

	err := svc.Return(context.Background(), ReturnInput{
		LoanID:      loan.ID,
		ActorUserID: loan.UserID,
		ActorRole:   enums.UserRoleStudent,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if loan.Status != enums.LoanStatusCompleted {
		t.Fatalf("expected completed got %s", loan.Status)
	}
	if len(ledger.releases) != 1 || ledger.releases[0].qty != 1 {
		t.Fatalf("unexpected release calls %+v", ledger.releases)
	}
	if len(outboxStub.events) != 1 || outboxStub.events[0].EventType != enums.EventLoanReturned {
		t.Fatalf("unexpected outbox events %+v", outboxStub.events)
	}
	payload, ok := outboxStub.events[0].Data.(payloads.LoanReturnedEvent)
	if !ok {
		t.Fatalf("unexpected event payload %T", outboxStub.events[0].Data)
	}
	if payload.ReturnedLate {
		t.Fatal("return before due date must not be late")
	}
}

func TestReturnFlagsLateReturns(t *testing.T) {
	loan := pendingLoan(1)
	loan.Status = enums.LoanStatusApproved
	loan.DueDate = time.Now().UTC().Add(-48 * time.Hour)
	repo := &stubLoansRepo{loan: loan}
	outboxStub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, outboxStub, &stubLedger{})

	err := svc.Return(context.Background(), ReturnInput{
		LoanID:      loan.ID,
		ActorUserID: loan.UserID,
		ActorRole:   enums.UserRoleStudent,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	payload := outboxStub.events[0].Data.(payloads.LoanReturnedEvent)
	if !payload.ReturnedLate {
		t.Fatal("return after due date must be flagged late")
	}
}

func TestReturnRejectsOtherUsers(t *testing.T) {
	loan := pendingLoan(1)
	loan.Status = enums.LoanStatusApproved
	repo := &stubLoansRepo{loan: loan}
	ledger := &stubLedger{}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, ledger)

	err := svc.Return(context.Background(), ReturnInput{
		LoanID:      loan.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleStudent,
	})
	assertCode(t, err, pkgerrors.CodeForbidden)
	if len(ledger.releases) != 0 {
		t.Fatal("no release expected for forbidden return")
	}
}

func TestReturnAllowsAdministrator(t *testing.T) {
	loan := pendingLoan(1)
	loan.Status = enums.LoanStatusApproved
	repo := &stubLoansRepo{loan: loan}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubLedger{})

	err := svc.Return(context.Background(), ReturnInput{
		LoanID:      loan.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
}

func TestReturnSecondCallConflicts(t *testing.T) {
	loan := pendingLoan(1)
	loan.Status = enums.LoanStatusApproved
	repo := &stubLoansRepo{loan: loan}
	ledger := &stubLedger{}
	outboxStub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, outboxStub, ledger)

	input := ReturnInput{LoanID: loan.ID, ActorUserID: loan.UserID, ActorRole: enums.UserRoleStudent}
	if err := svc.Return(context.Background(), input); err != nil {
		t.Fatalf("first return failed: %v", err)
	}
	err := svc.Return(context.Background(), input)
	assertCode(t, err, pkgerrors.CodeStateConflict)
	if len(ledger.releases) != 1 {
		t.Fatalf("copies must be released exactly once, got %d releases", len(ledger.releases))
	}
	if len(outboxStub.events) != 1 {
		t.Fatalf("expected a single event, got %d", len(outboxStub.events))
	}
}

func TestReturnInvalidState(t *testing.T) {
	loan := pendingLoan(1)
	repo := &stubLoansRepo{loan: loan}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubLedger{})

	err := svc.Return(context.Background(), ReturnInput{
		LoanID:      loan.ID,
		ActorUserID: loan.UserID,
		ActorRole:   enums.UserRoleStudent,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestPurgeDeletesRejectedLoan(t *testing.T) {
	loan := pendingLoan(1)
	loan.Status = enums.LoanStatusRejected
	repo := &stubLoansRepo{loan: loan}
	outboxStub := &stubOutboxPublisher{}
	ledger := &stubLedger{}
	svc := newTestService(t, repo, outboxStub, ledger)

	err := svc.Purge(context.Background(), PurgeInput{
		LoanID:      loan.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.deletedID != loan.ID {
		t.Fatalf("expected loan deleted, got %s", repo.deletedID)
	}
	if len(ledger.releases) != 0 {
		t.Fatal("purge must not touch inventory")
	}
	if len(outboxStub.events) != 1 || outboxStub.events[0].EventType != enums.EventLoanPurged {
		t.Fatalf("unexpected outbox events %+v", outboxStub.events)
	}
}

func TestPurgeRequiresRejectedState(t *testing.T) {
	loan := pendingLoan(1)
	loan.Status = enums.LoanStatusApproved
	repo := &stubLoansRepo{loan: loan}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubLedger{})

	err := svc.Purge(context.Background(), PurgeInput{
		LoanID:      loan.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleAdmin,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
	if repo.deletedID != uuid.Nil {
		t.Fatal("loan must not be deleted on state conflict")
	}
}

func TestPurgeRequiresAdministrator(t *testing.T) {
	loan := pendingLoan(1)
	loan.Status = enums.LoanStatusRejected
	repo := &stubLoansRepo{loan: loan}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubLedger{})

	err := svc.Purge(context.Background(), PurgeInput{
		LoanID:      loan.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleStaff,
	})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestFindByIDScopesToOwner(t *testing.T) {
	loan := pendingLoan(1)
	repo := &stubLoansRepo{loan: loan}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubLedger{})

	if _, err := svc.FindByID(context.Background(), FindInput{
		LoanID:      loan.ID,
		ActorUserID: loan.UserID,
		ActorRole:   enums.UserRoleStudent,
	}); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}

	_, err := svc.FindByID(context.Background(), FindInput{
		LoanID:      loan.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleStudent,
	})
	assertCode(t, err, pkgerrors.CodeForbidden)

	if _, err := svc.FindByID(context.Background(), FindInput{
		LoanID:      loan.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleAdmin,
	}); err != nil {
		t.Fatalf("admin read failed: %v", err)
	}
}
