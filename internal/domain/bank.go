package domain

// Bank is one partner-bank backend this gateway aggregates.
type Bank struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	BaseURL string `yaml:"baseUrl" json:"-"`
}

// Registry is the fixed set of partner banks, in configuration order.
// Fan-out results are merged in this order.
type Registry struct {
	banks []Bank
	byID  map[string]Bank
}

func NewRegistry(banks []Bank) *Registry {
	byID := make(map[string]Bank, len(banks))
	for _, b := range banks {
		byID[b.ID] = b
	}
	return &Registry{banks: banks, byID: byID}
}

// Resolve returns the bank for id, or UnknownBankError.
func (r *Registry) Resolve(id string) (Bank, error) {
	b, ok := r.byID[id]
	if !ok {
		return Bank{}, UnknownBankError{Bank: id}
	}
	return b, nil
}

// Banks returns all registered banks in registry order.
func (r *Registry) Banks() []Bank {
	out := make([]Bank, len(r.banks))
	copy(out, r.banks)
	return out
}

// Default returns the first registered bank, used when the caller does not
// name one on single-bank operations.
func (r *Registry) Default() Bank {
	if len(r.banks) == 0 {
		return Bank{}
	}
	return r.banks[0]
}
