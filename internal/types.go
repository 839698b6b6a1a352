package internal

// FileFormat is the detected shape of a supplier pricing file.
type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatXML  FileFormat = "xml"
	FormatJSON FileFormat = "json"
	FormatXLSX FileFormat = "xlsx"
)

// LogicalField is one of the fixed pricing-import columns a supplier file
// can be mapped onto.
type LogicalField string

const (
	FieldSupplierReference LogicalField = "supplier_reference"
	FieldSupplierPrice     LogicalField = "supplier_price"
	FieldProductName       LogicalField = "product_name"
	FieldEAN               LogicalField = "ean"
	FieldStockQuantity     LogicalField = "stock_quantity"
	FieldLeadTimeDays      LogicalField = "lead_time_days"
	FieldMinOrderQuantity  LogicalField = "min_order_quantity"
)

type ParsedFile struct {
	Format  FileFormat
	Headers []string
	Rows    []map[string]string
}

// ColumnMapping associates logical fields with source file headers. Missing
// keys mean the field is unmapped.
type ColumnMapping map[LogicalField]string

type NormalizedRow struct {
	SupplierReference string
	SupplierPrice     float64
	ProductName       *string
	EAN               *string
	StockQuantity     int
	LeadTimeDays      int
	MinOrderQuantity  int
}

type ImportReport struct {
	Success   int `json:"success"`
	Errors    int `json:"errors"`
	Unmatched int `json:"unmatched"`
	Total     int `json:"total"`
}

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchMatched   MatchStatus = "matched"
	MatchPartial   MatchStatus = "partial"
	MatchUnmatched MatchStatus = "unmatched"
)

// ConfidenceBand is the display-only bucket for a match confidence. It never
// feeds back into MatchStatus.
type ConfidenceBand string

const (
	BandSure      ConfidenceBand = "Sûr"
	BandMedium    ConfidenceBand = "Moyen"
	BandUncertain ConfidenceBand = "Incertain"
)

type CartTier string

const (
	TierEssentiel CartTier = "essentiel"
	TierEquilibre CartTier = "equilibre"
	TierPremium   CartTier = "premium"
)

type RelationType string

const (
	RelationComplement         RelationType = "complement"
	RelationCompatibility      RelationType = "compatibility"
	RelationAlternativeDurable RelationType = "alternative_durable"
	RelationSubstitution       RelationType = "substitution"
)

// ProductRecord is one catalog row synced from the hosted backend.
type ProductRecord struct {
	ID            int
	Name          string
	EAN           *string
	SKU           *string
	PriceTTC      float64
	MarginPercent *float64
	StockQuantity *int
	Eco           bool
	Category      *string
	UpdatedAt     *string
	RawJSON       string
}

type SupplierRecord struct {
	ID           int
	Name         string
	Email        *string
	LeadTimeDays int
}

type SchoolListUpload struct {
	ID         string
	FileName   string
	ObjectKey  string
	Size       int64
	SchoolName *string
	ClassLevel *string
	CreatedAt  string
}

// ListItem is one parsed line of a school supply list.
type ListItem struct {
	LineNo      int
	Label       string
	Quantity    int
	Mandatory   bool
	Constraints *string
}

type ProductCandidate struct {
	ProductID int     `json:"productId"`
	Name      string  `json:"name"`
	PriceTTC  float64 `json:"priceTtc"`
	Eco       bool    `json:"eco"`
	Score     float64 `json:"score"`
}

// SchoolListMatch carries the matcher verdict for one list item. Candidates
// are ordered best-first.
type SchoolListMatch struct {
	Item       ListItem           `json:"item"`
	Status     MatchStatus        `json:"status"`
	Confidence float64            `json:"confidence"`
	Candidates []ProductCandidate `json:"candidates"`
}

type CartItem struct {
	ProductID   int     `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Eco         bool    `json:"eco"`
}

type TierCart struct {
	Tier       CartTier   `json:"tier"`
	Items      []CartItem `json:"items"`
	ItemsCount int        `json:"itemsCount"`
	TotalTTC   float64    `json:"totalTtc"`
}

// CartSummary compares the three tier carts without mutating them.
type CartSummary struct {
	CheapestTier  CartTier `json:"cheapestTier"`
	CheapestTotal float64  `json:"cheapestTotal"`
	PriciestTier  CartTier `json:"priciestTier"`
	PriciestTotal float64  `json:"priciestTotal"`
	Savings       float64  `json:"savings"`
	ToReview      int      `json:"toReview"`
}

// RecoProduct is a cross-sell or complement candidate with its locally
// computed score.
type RecoProduct struct {
	ProductID     int          `json:"productId"`
	Name          string       `json:"name"`
	Relation      RelationType `json:"relation"`
	PriceTTC      float64      `json:"priceTtc"`
	MarginPercent *float64     `json:"marginPercent"`
	StockQuantity *int         `json:"stockQuantity"`
	Score         float64      `json:"score"`
}

// CompatibilityPair is one undirected edge of the compatibility matrix.
type CompatibilityPair struct {
	ProductA int `json:"productA"`
	ProductB int `json:"productB"`
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

// ListReviewRow is one exported line of a school-list matching review
// workbook.
type ListReviewRow struct {
	LineNo          int
	Label           string
	Quantity        int
	Mandatory       bool
	Constraints     *string
	MatchStatus     string
	Confidence      float64
	Band            *string
	ProductID       *int
	ProductName     *string
	ProductPrice    *float64
	Candidate2Name  *string
	Candidate2Score *float64
}
