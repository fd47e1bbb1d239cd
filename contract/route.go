package contract

import "fmt"

// Op is the operation an application call requests.
type Op int

const (
	OpCreate Op = iota + 1
	OpOptIn
	OpDeposit
	OpWithdraw
	OpClear
)

var opNames = map[Op]string{
	OpCreate:   "create",
	OpOptIn:    "optin",
	OpDeposit:  "deposit",
	OpWithdraw: "withdraw",
	OpClear:    "clear",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// MarshalText satisfies the encoding.TextMarshaler interface.
func (op Op) MarshalText() ([]byte, error) {
	if _, ok := opNames[op]; !ok {
		return nil, fmt.Errorf("unknown op %d", int(op))
	}
	return []byte(op.String()), nil
}

// UnmarshalText satisfies the encoding.TextUnmarshaler interface.
func (op *Op) UnmarshalText(text []byte) error {
	for o, s := range opNames {
		if s == string(text) {
			*op = o
			return nil
		}
	}
	return fmt.Errorf("unknown op %q", text)
}

// Route decides which operation the application call txn requests.
// The checks run in a fixed order: an unset application ID means create,
// then opt-in, then clear, and only then the first argument of a NoOp call.
// Everything else is rejected.
func Route(txn *Txn) (Op, error) {
	if txn.Type != AppCallTx {
		return 0, reject("%s is not an application call", txn.Type)
	}
	if txn.ApplicationID == 0 {
		return OpCreate, nil
	}
	switch txn.OnCompletion {
	case OptIn:
		return OpOptIn, nil
	case ClearState:
		return OpClear, nil
	case NoOp:
	default:
		return 0, reject("unsupported completion type %s", txn.OnCompletion)
	}
	arg, ok := txn.Arg(0)
	if !ok {
		return 0, reject("missing operation argument")
	}
	switch string(arg) {
	case "deposit":
		return OpDeposit, nil
	case "withdraw":
		return OpWithdraw, nil
	}
	return 0, reject("unknown operation %q", arg)
}
