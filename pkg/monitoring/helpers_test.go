package monitoring

import (
	"sync"
	"time"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testNow}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// txn builds a normalized transaction at testNow minus ago.
func txn(id, customer string, amount float64, ago time.Duration) Transaction {
	base := amount
	return Transaction{
		TxnID:      id,
		CustomerID: customer,
		Timestamp:  testNow.Add(-ago),
		Amount:     amount,
		Currency:   "USD",
		Direction:  DirectionOut,
		Channel:    "WIRE",
		AmountBase: &base,
	}
}

func record(id, customer string, amount any, currency string) map[string]any {
	return map[string]any{
		"txn_id":      id,
		"customer_id": customer,
		"timestamp":   testNow.Add(-time.Minute).Format(time.RFC3339),
		"amount":      amount,
		"currency":    currency,
		"direction":   "OUT",
		"channel":     "WIRE",
	}
}
