package errs

// ErrorKind identifies a kind of internal error.
// fully support for errors.Is and errors.As.
type ErrorKind string

const (
	// NotFound is returned when a requested item is not found.
	NotFound        = ErrorKind("Not Found")
	Unsupported     = ErrorKind("Unsupported")
	InvalidArgument = ErrorKind("Invalid Argument")
	ConflictSetting = ErrorKind("Conflict Setting")

	// resource-not-found kinds
	TokenNotFound      = ErrorKind("token not found")
	CollectionNotFound = ErrorKind("collection not found")

	// permission kinds
	NoPermission                       = ErrorKind("no permission")
	AddressNotInAllowlist              = ErrorKind("address is not in allow list")
	PublicMintingNotAllowed            = ErrorKind("public minting is not allowed for this collection")
	UserIsNotAllowedToNest             = ErrorKind("user is not allowed to nest tokens under this token")
	SourceCollectionIsNotAllowedToNest = ErrorKind("source collection is not allowed to be nested")

	// capacity/limit kinds
	CollectionTokenLimitExceeded = ErrorKind("collection token limit exceeded")
	AccountTokenLimitExceeded    = ErrorKind("account token ownership limit exceeded")
	TransferNotAllowed           = ErrorKind("transfers are not allowed for this collection")
	CollectionNotEmpty           = ErrorKind("collection is not empty")

	// counters use checked arithmetic, never wrapping
	ArithmeticOverflow = ErrorKind("arithmetic overflow")

	// structural/graph kinds
	DepthLimit              = ErrorKind("nesting depth limit exceeded")
	BreadthLimit            = ErrorKind("nesting breadth limit exceeded")
	CantBurnNftWithChildren = ErrorKind("can't burn token with nested children")
	OuroborosDetected       = ErrorKind("token would become its own ancestor")

	// property kinds
	PropertyKeyTooLong   = ErrorKind("property key is too long")
	InvalidPropertyKey   = ErrorKind("property key contains invalid characters")
	PropertyValueTooLong = ErrorKind("property value is too long")
	PropertyLimitReached = ErrorKind("property limit of the target is reached")

	// value kinds
	NonfungibleItemsHaveNoAmount = ErrorKind("non-fungible items have no amount")
	ApprovedValueTooLow          = ErrorKind("approved value is too low")
	CantApproveMoreThanOwned     = ErrorKind("can't approve more than owned")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}
