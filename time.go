package walletd

// ServerTime is the ledger's clock, fetched fresh before every push
// registration call for request ordering.
type ServerTime struct {
	Timestamp int64 `json:"timestamp"`
}

func (t *ServerTime) Get() int64 {
	if t == nil {
		return 0
	}

	return t.Timestamp
}
