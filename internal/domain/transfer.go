package domain

// TxType classifies a merged transaction as a native value movement or an
// ERC-20 token transfer. Set once at merge time, never mutated after.
type TxType string

// Transaction types.
const (
	TxTypeNative TxType = "NATIVE"
	TxTypeToken  TxType = "TOKEN"
)

// TransferRecord is one ledger entry as returned by the explorer account API.
// Numeric fields are kept as strings exactly as the API sends them; parsing
// with defaults happens at ingestion (see ingestion.ParseInt64/ParseFloat).
type TransferRecord struct {
	Hash            string `json:"hash"`
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	GasUsed         string `json:"gasUsed"`
	GasPrice        string `json:"gasPrice"`
	ContractAddress string `json:"contractAddress"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
}

// Transaction is a TransferRecord with a resolved type. Token transactions
// carry the gas fields of the native transaction that wrapped them, copied in
// by the merger when a native record shares the same hash.
type Transaction struct {
	TransferRecord
	Type TxType
}
