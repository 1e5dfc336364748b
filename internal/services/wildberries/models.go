package wildberries

// StockPage is one page of the stocks report.
type StockPage struct {
	Data StockData `json:"data"`
}

type StockData struct {
	Items []StockItem `json:"items"`
}

type StockItem struct {
	NmID        uint64        `json:"nmID"`
	IsDeleted   bool          `json:"isDeleted"`
	SubjectName string        `json:"subjectName"`
	Name        string        `json:"name"`
	VendorCode  string        `json:"vendorCode"`
	BrandName   string        `json:"brandName"`
	Metrics     *StockMetrics `json:"metrics"`
}

type StockMetrics struct {
	OrdersCount int64   `json:"ordersCount"`
	OrdersSum   float64 `json:"ordersSum"`
	StockCount  int64   `json:"stockCount"`
	StockSum    float64 `json:"stockSum"`
}

// Order is one record of the supplier orders report. Dates are kept as the
// API returns them since lastChangeDate is echoed back as the next cursor.
type Order struct {
	Date            string  `json:"date"`
	LastChangeDate  string  `json:"lastChangeDate"`
	WarehouseName   string  `json:"warehouseName"`
	SupplierArticle string  `json:"supplierArticle"`
	NmID            uint64  `json:"nmId"`
	Barcode         string  `json:"barcode"`
	Subject         string  `json:"subject"`
	Brand           string  `json:"brand"`
	TotalPrice      float64 `json:"totalPrice"`
	IsCancel        bool    `json:"isCancel"`
	IsRealization   bool    `json:"isRealization"`
	Srid            string  `json:"srid"`
}

type stockRequest struct {
	StockType           string   `json:"stockType"`
	CurrentPeriod       period   `json:"currentPeriod"`
	SkipDeletedNm       bool     `json:"skipDeletedNm"`
	OrderBy             orderBy  `json:"orderBy"`
	Limit               int      `json:"limit"`
	Offset              int      `json:"offset"`
	AvailabilityFilters []string `json:"availabilityFilters"`
}

type period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type orderBy struct {
	Field string `json:"field"`
	Mode  string `json:"mode"`
}

var availabilityFilters = []string{
	"deficient",
	"actual",
	"balanced",
	"nonActual",
	"nonLiquid",
	"invalidData",
}
