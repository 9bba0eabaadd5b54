package accounts

// Account is a seeded account as the simulator wallet expects it.
type Account struct {
	SecretKey Key     `json:"secretKey"`
	Balance   Balance `json:"balance"`
}

// Transform turns the mapping into wallet accounts, in mapping order. The
// identifiers are dropped and the fields are copied as they are.
func Transform(m Mapping) []Account {
	out := make([]Account, 0, len(m))
	for _, e := range m {
		out = append(out, Account{
			SecretKey: append(Key(nil), e.Record.PrivateKey...),
			Balance:   append(Balance(nil), e.Record.Balance...),
		})
	}
	return out
}
