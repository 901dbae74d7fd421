package domain

// Built-in action kinds shipped with the engine.
const (
	KindNavigate          = "navigate"
	KindGoBack            = "goBack"
	KindReload            = "reload"
	KindAPICall           = "apiCall"
	KindExecuteAction     = "executeAction"
	KindSetState          = "setState"
	KindResetState        = "resetState"
	KindMergeState        = "mergeState"
	KindShowToast         = "showToast"
	KindShowDialog        = "showDialog"
	KindCloseDialog       = "closeDialog"
	KindSubmitForm        = "submitForm"
	KindValidateForm      = "validateForm"
	KindResetForm         = "resetForm"
	KindRefreshDatasource = "refreshDatasource"
	KindInvalidateCache   = "invalidateCache"
	KindOpenModal         = "openModal"
	KindCloseModal        = "closeModal"
	KindDownloadFile      = "downloadFile"
	KindUploadFile        = "uploadFile"
	KindLog               = "log"
	KindDelay             = "delay"

	// Structural combinators, executed by the graph runner itself.
	KindConditional = "conditional"
	KindSequence    = "sequence"
	KindParallel    = "parallel"
	KindForEach     = "forEach"
)

// Param keys read by the structural combinators.
const (
	ParamActions     = "actions"
	ParamBranches    = "branches"
	ParamDefault     = "default"
	ParamItems       = "items"
	ParamItemActions = "itemActions"
)

// Combinator is the closed set of structural kinds.
type Combinator string

const (
	CombinatorNone        Combinator = ""
	CombinatorSequence    Combinator = KindSequence
	CombinatorParallel    Combinator = KindParallel
	CombinatorConditional Combinator = KindConditional
	CombinatorForEach     Combinator = KindForEach
)

// CombinatorOf reports which structural combinator a kind selects, if any.
func CombinatorOf(kind string) Combinator {
	switch kind {
	case KindSequence, KindParallel, KindConditional, KindForEach:
		return Combinator(kind)
	default:
		return CombinatorNone
	}
}
