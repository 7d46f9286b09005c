package service

import (
	"context"
	"sync"
	"time"

	"rentdesk-backend/internal/domain"
)

// memDB is an in-memory stand-in for the relational store that keeps the
// conditional-update semantics the services rely on.
type memDB struct {
	mu            sync.Mutex
	nextID        int32
	teams         map[int32]domain.Team
	customers     map[int32]domain.Customer
	vehicles      map[int32]domain.Vehicle
	reservations  map[int32]domain.Reservation
	payments      map[int32]domain.Payment
	contracts     map[int32]domain.Contract
	notifications []domain.Notification

	// statusUpdates counts successful reservation status writes.
	statusUpdates int
	// beforeUpdate, when set, runs inside UpdateStatus before the compare.
	beforeUpdate func(db *memDB, id int32)
	// attachErr, when set, fails the next AttachSession.
	attachErr error
}

func newMemDB() *memDB {
	return &memDB{
		nextID:       100,
		teams:        map[int32]domain.Team{},
		customers:    map[int32]domain.Customer{},
		vehicles:     map[int32]domain.Vehicle{},
		reservations: map[int32]domain.Reservation{},
		payments:     map[int32]domain.Payment{},
		contracts:    map[int32]domain.Contract{},
	}
}

func (db *memDB) id() int32 {
	db.nextID++
	return db.nextID
}

// seed adds a team, a customer, a vehicle and a reservation in status.
func (db *memDB) seed(status domain.ReservationStatus, total int64, deposit *int64) domain.Reservation {
	db.teams[1] = domain.Team{ID: 1, Name: "Coastal Campers", PlanTier: domain.PlanTierFree, PayoutAccountID: "acct_123"}
	db.customers[2] = domain.Customer{ID: 2, TeamID: 1, FirstName: "Ana", LastName: "Lima", Email: "ana@example.com"}
	db.vehicles[3] = domain.Vehicle{ID: 3, TeamID: 1, Name: "Westfalia", Status: domain.VehicleStatusAvailable}
	res := domain.Reservation{
		ID:                 10,
		TeamID:             1,
		CustomerID:         2,
		VehicleID:          3,
		Status:             status,
		MagicToken:         "magic-abc",
		BalanceToken:       "balance-abc",
		StartDate:          time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC),
		EndDate:            time.Date(2026, 7, 5, 10, 0, 0, 0, time.UTC),
		TotalAmountCents:   total,
		DepositAmountCents: deposit,
	}
	db.reservations[res.ID] = res
	return res
}

func (db *memDB) addPayment(p domain.Payment) domain.Payment {
	if p.ID == 0 {
		p.ID = db.id()
	}
	db.payments[p.ID] = p
	return p
}

func (db *memDB) reservation(id int32) domain.Reservation {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.reservations[id]
}

func (db *memDB) payment(id int32) domain.Payment {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.payments[id]
}

func (db *memDB) succeededCount(reservationID int32) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, p := range db.payments {
		if p.ReservationID == reservationID && p.Status == domain.PaymentStatusSucceeded {
			n++
		}
	}
	return n
}

type memTeams struct{ db *memDB }

func (r memTeams) GetByID(ctx context.Context, id int32) (*domain.Team, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.teams[id]
	if !ok {
		return nil, domain.NotFoundf("team %d", id)
	}
	return &t, nil
}

type memCustomers struct{ db *memDB }

func (r memCustomers) GetByID(ctx context.Context, teamID, id int32) (*domain.Customer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.customers[id]
	if !ok || c.TeamID != teamID {
		return nil, domain.NotFoundf("customer %d", id)
	}
	return &c, nil
}

type memVehicles struct{ db *memDB }

func (r memVehicles) GetByID(ctx context.Context, teamID, id int32) (*domain.Vehicle, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	v, ok := r.db.vehicles[id]
	if !ok || v.TeamID != teamID {
		return nil, domain.NotFoundf("vehicle %d", id)
	}
	return &v, nil
}

type memReservations struct{ db *memDB }

func (r memReservations) GetByID(ctx context.Context, id int32) (*domain.Reservation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	res, ok := r.db.reservations[id]
	if !ok {
		return nil, domain.NotFoundf("reservation %d", id)
	}
	return &res, nil
}

func (r memReservations) GetForTeam(ctx context.Context, teamID, id int32) (*domain.Reservation, error) {
	res, err := r.GetByID(ctx, id)
	if err != nil || res.TeamID != teamID {
		return nil, domain.NotFoundf("reservation %d", id)
	}
	return res, nil
}

func (r memReservations) byToken(match func(domain.Reservation) bool) (*domain.Reservation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, res := range r.db.reservations {
		if match(res) {
			return &res, nil
		}
	}
	return nil, domain.NotFoundf("reservation")
}

func (r memReservations) GetByMagicToken(ctx context.Context, token string) (*domain.Reservation, error) {
	return r.byToken(func(res domain.Reservation) bool { return token != "" && res.MagicToken == token })
}

func (r memReservations) GetByBalanceToken(ctx context.Context, token string) (*domain.Reservation, error) {
	return r.byToken(func(res domain.Reservation) bool { return token != "" && res.BalanceToken == token })
}

func (r memReservations) UpdateStatus(ctx context.Context, id int32, from, to domain.ReservationStatus) error {
	if hook := r.db.beforeUpdate; hook != nil {
		r.db.beforeUpdate = nil
		hook(r.db, id)
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	res, ok := r.db.reservations[id]
	if !ok || res.Status != from {
		return domain.Conflictf("reservation %d is not %s", id, from)
	}
	res.Status = to
	r.db.reservations[id] = res
	r.db.statusUpdates++
	return nil
}

func (r memReservations) handover(teamID, id int32, event domain.ReservationEvent, h domain.Handover) (*domain.Reservation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	res, ok := r.db.reservations[id]
	if !ok || res.TeamID != teamID {
		return nil, domain.NotFoundf("reservation %d", id)
	}
	next, err := domain.Transition(res.Status, event)
	if err != nil {
		return nil, domain.Conflictf("%v", err)
	}
	res.Status = next
	if event == domain.EventCheckIn {
		res.CheckIn = &h
	} else {
		res.CheckOut = &h
	}
	r.db.reservations[id] = res
	return &res, nil
}

func (r memReservations) CheckIn(ctx context.Context, teamID, id int32, h domain.Handover) (*domain.Reservation, error) {
	return r.handover(teamID, id, domain.EventCheckIn, h)
}

func (r memReservations) CheckOut(ctx context.Context, teamID, id int32, h domain.Handover) (*domain.Reservation, error) {
	return r.handover(teamID, id, domain.EventCheckOut, h)
}

type memPayments struct{ db *memDB }

func (r memPayments) CreatePending(ctx context.Context, p *domain.Payment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.payments {
		if existing.ReservationID == p.ReservationID && existing.Type == p.Type && existing.Status != domain.PaymentStatusFailed {
			return domain.Conflictf("live %s payment exists", p.Type)
		}
	}
	p.ID = r.db.id()
	p.Status = domain.PaymentStatusPending
	p.CreatedOn = time.Now()
	r.db.payments[p.ID] = *p
	return nil
}

func (r memPayments) cas(id int32, apply func(p *domain.Payment)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok || p.Status != domain.PaymentStatusPending {
		return domain.Conflictf("payment %d is not pending", id)
	}
	apply(&p)
	r.db.payments[id] = p
	return nil
}

func (r memPayments) AttachSession(ctx context.Context, id int32, sessionID string) error {
	r.db.mu.Lock()
	err := r.db.attachErr
	r.db.attachErr = nil
	r.db.mu.Unlock()
	if err != nil {
		return err
	}
	return r.cas(id, func(p *domain.Payment) { p.SessionID = sessionID })
}

func (r memPayments) MarkSucceeded(ctx context.Context, id int32, at time.Time) error {
	return r.cas(id, func(p *domain.Payment) {
		p.Status = domain.PaymentStatusSucceeded
		p.SucceededOn = &at
	})
}

func (r memPayments) MarkFailed(ctx context.Context, id int32) error {
	return r.cas(id, func(p *domain.Payment) { p.Status = domain.PaymentStatusFailed })
}

func (r memPayments) GetByID(ctx context.Context, id int32) (*domain.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok {
		return nil, domain.NotFoundf("payment %d", id)
	}
	return &p, nil
}

func (r memPayments) GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.payments {
		if sessionID != "" && p.SessionID == sessionID {
			return &p, nil
		}
	}
	return nil, domain.NotFoundf("payment for session %s", sessionID)
}

func (r memPayments) FindLive(ctx context.Context, reservationID int32, t domain.PaymentType) (*domain.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.payments {
		if p.ReservationID == reservationID && p.Type == t && p.Status != domain.PaymentStatusFailed {
			return &p, nil
		}
	}
	return nil, domain.NotFoundf("live %s payment", t)
}

func (r memPayments) ListByReservation(ctx context.Context, reservationID int32) ([]domain.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Payment
	for _, p := range r.db.payments {
		if p.ReservationID == reservationID {
			out = append(out, p)
		}
	}
	return out, nil
}

type memContracts struct{ db *memDB }

func (r memContracts) Create(ctx context.Context, c *domain.Contract) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.contracts {
		if existing.ReservationID == c.ReservationID {
			return domain.Conflictf("contract exists for reservation %d", c.ReservationID)
		}
	}
	c.ID = r.db.id()
	r.db.contracts[c.ID] = *c
	return nil
}

func (r memContracts) find(match func(domain.Contract) bool) (*domain.Contract, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.contracts {
		if match(c) {
			return &c, nil
		}
	}
	return nil, domain.NotFoundf("contract")
}

func (r memContracts) GetByReservationID(ctx context.Context, reservationID int32) (*domain.Contract, error) {
	return r.find(func(c domain.Contract) bool { return c.ReservationID == reservationID })
}

func (r memContracts) GetBySignatureRequestID(ctx context.Context, requestID string) (*domain.Contract, error) {
	return r.find(func(c domain.Contract) bool { return c.SignatureRequestID == requestID })
}

func (r memContracts) MarkSigned(ctx context.Context, id int32, at time.Time, location string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.contracts[id]
	if !ok || c.SignedAt != nil {
		return domain.Conflictf("contract %d already signed", id)
	}
	c.SignedAt = &at
	c.SignedLocation = location
	r.db.contracts[id] = c
	return nil
}
