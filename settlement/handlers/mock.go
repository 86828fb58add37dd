package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/davidjwilkins/declarative-settlements/settlement/resolver"
)

type lookupMock struct {
	lock        sync.RWMutex
	statuses    map[string]string
	errors      map[string]error
	panics      map[string]interface{}
	delay       time.Duration
	requests    []resolver.LookupRequest
	inFlight    map[string]int
	maxInFlight map[string]int
}

type notifierMock struct {
	lock    sync.RWMutex
	notices []resolver.Notice
	errors  []error
}

func NewLookupMock() *lookupMock {
	return &lookupMock{
		statuses:    make(map[string]string),
		errors:      make(map[string]error),
		panics:      make(map[string]interface{}),
		inFlight:    make(map[string]int),
		maxInFlight: make(map[string]int),
	}
}

// SetStatus sets the status reported for invoiceID until changed.
func (m *lookupMock) SetStatus(invoiceID, status string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.statuses[invoiceID] = status
}

// ShouldErr makes the next lookup of invoiceID fail with err.
func (m *lookupMock) ShouldErr(invoiceID string, err error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.errors[invoiceID] = err
}

// ShouldPanic makes the next lookup of invoiceID panic with v.
func (m *lookupMock) ShouldPanic(invoiceID string, v interface{}) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.panics[invoiceID] = v
}

// SetDelay makes every lookup wait d, or until its context is done.
func (m *lookupMock) SetDelay(d time.Duration) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.delay = d
}

func (m *lookupMock) Requests() []resolver.LookupRequest {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return append([]resolver.LookupRequest(nil), m.requests...)
}

func (m *lookupMock) Calls(invoiceID string) int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	calls := 0
	for _, req := range m.requests {
		if req.InvoiceID == invoiceID {
			calls++
		}
	}
	return calls
}

// MaxInFlight is the highest number of simultaneous lookups seen for invoiceID.
func (m *lookupMock) MaxInFlight(invoiceID string) int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.maxInFlight[invoiceID]
}

func (m *lookupMock) Lookup(ctx context.Context, req resolver.LookupRequest) (resolver.StatusReport, error) {
	id := req.InvoiceID
	m.lock.Lock()
	m.requests = append(m.requests, req)
	m.inFlight[id]++
	if m.inFlight[id] > m.maxInFlight[id] {
		m.maxInFlight[id] = m.inFlight[id]
	}
	delay := m.delay
	err, hasErr := m.errors[id]
	delete(m.errors, id)
	p, hasPanic := m.panics[id]
	delete(m.panics, id)
	status := m.statuses[id]
	m.lock.Unlock()

	defer func() {
		m.lock.Lock()
		m.inFlight[id]--
		m.lock.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return resolver.StatusReport{}, ctx.Err()
		}
	}
	if hasPanic {
		panic(p)
	}
	if hasErr {
		return resolver.StatusReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return resolver.StatusReport{}, err
	}
	return resolver.StatusReport{Status: status}, nil
}

func NewNotifierMock() *notifierMock {
	return &notifierMock{}
}

// ShouldErr makes the next notification fail with err. The notice is still recorded.
func (m *notifierMock) ShouldErr(err error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.errors = append(m.errors, err)
}

func (m *notifierMock) Notices() []resolver.Notice {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return append([]resolver.Notice(nil), m.notices...)
}

func (m *notifierMock) Notify(_ context.Context, title, body string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.notices = append(m.notices, resolver.Notice{Title: title, Body: body})
	if len(m.errors) > 0 {
		err := m.errors[0]
		m.errors = m.errors[1:]
		return err
	}
	return nil
}
