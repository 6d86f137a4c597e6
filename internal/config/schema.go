package config

import "time"

// Schema maps every table and field the service touches to its name in the
// record store. Nothing outside this file assumes a literal field name.
type Schema struct {
	Employees     EmployeeSchema     `koanf:"employees" yaml:"employees"`
	Organizations OrganizationSchema `koanf:"organizations" yaml:"organizations"`
	Menu          MenuSchema         `koanf:"menu" yaml:"menu"`
	Orders        OrderSchema        `koanf:"orders" yaml:"orders"`
	MealBoxes     MealBoxSchema      `koanf:"meal_boxes" yaml:"meal_boxes"`
	OrderLines    OrderLineSchema    `koanf:"order_lines" yaml:"order_lines"`
	RequestLog    RequestLogSchema   `koanf:"request_log" yaml:"request_log"`
	Payments      PaymentSchema      `koanf:"payments" yaml:"payments"`
	BankConfigs   BankConfigSchema   `koanf:"bank_configs" yaml:"bank_configs"`
}

type EmployeeSchema struct {
	Table   string `koanf:"table" yaml:"table"`
	OrgCode string `koanf:"org_code" yaml:"org_code"`
	Token   string `koanf:"token" yaml:"token"`
	Status  string `koanf:"status" yaml:"status"`
	Role    string `koanf:"role" yaml:"role"`
	Name    string `koanf:"name" yaml:"name"`
	Email   string `koanf:"email" yaml:"email"`
}

type OrganizationSchema struct {
	Table            string `koanf:"table" yaml:"table"`
	Code             string `koanf:"code" yaml:"code"`
	Name             string `koanf:"name" yaml:"name"`
	TimeZone         string `koanf:"time_zone" yaml:"time_zone"`
	Cutoff           string `koanf:"cutoff" yaml:"cutoff"`
	PrivilegedCutoff string `koanf:"privileged_cutoff" yaml:"privileged_cutoff"`
	ContractType     string `koanf:"contract_type" yaml:"contract_type"`
	StandardPrice    string `koanf:"standard_price" yaml:"standard_price"`
	UpsizedPrice     string `koanf:"upsized_price" yaml:"upsized_price"`
	BankConfig       string `koanf:"bank_config" yaml:"bank_config"`
}

type MenuSchema struct {
	Table     string `koanf:"table" yaml:"table"`
	Date      string `koanf:"date" yaml:"date"`
	Name      string `koanf:"name" yaml:"name"`
	Category  string `koanf:"category" yaml:"category"`
	Published string `koanf:"published" yaml:"published"`
	Access    string `koanf:"access" yaml:"access"`
	Price     string `koanf:"price" yaml:"price"`
}

type OrderSchema struct {
	Table                   string   `koanf:"table" yaml:"table"`
	DeliveryDate            string   `koanf:"delivery_date" yaml:"delivery_date"`
	OrderType               string   `koanf:"order_type" yaml:"order_type"`
	Status                  string   `koanf:"status" yaml:"status"`
	Employee                string   `koanf:"employee" yaml:"employee"`
	PlacedBy                string   `koanf:"placed_by" yaml:"placed_by"`
	PaymentMethod           string   `koanf:"payment_method" yaml:"payment_method"`
	PayableAmount           string   `koanf:"payable_amount" yaml:"payable_amount"`
	Payment                 string   `koanf:"payment" yaml:"payment"`
	MealBoxLinkCandidates   []string `koanf:"meal_box_link_candidates" yaml:"meal_box_link_candidates"`
	OrderLineLinkCandidates []string `koanf:"order_line_link_candidates" yaml:"order_line_link_candidates"`
}

// MealBoxLink is the primary meal box link field.
func (s OrderSchema) MealBoxLink() string { return s.MealBoxLinkCandidates[0] }

// OrderLineLink is the primary order line link field.
func (s OrderSchema) OrderLineLink() string { return s.OrderLineLinkCandidates[0] }

type MealBoxSchema struct {
	Table       string `koanf:"table" yaml:"table"`
	MainDish    string `koanf:"main_dish" yaml:"main_dish"`
	SideDish    string `koanf:"side_dish" yaml:"side_dish"`
	Quantity    string `koanf:"quantity" yaml:"quantity"`
	StandardQty string `koanf:"standard_qty" yaml:"standard_qty"`
	UpsizedQty  string `koanf:"upsized_qty" yaml:"upsized_qty"`
}

type OrderLineSchema struct {
	Table    string `koanf:"table" yaml:"table"`
	Item     string `koanf:"item" yaml:"item"`
	Quantity string `koanf:"quantity" yaml:"quantity"`
}

type RequestLogSchema struct {
	Table string `koanf:"table" yaml:"table"`
	Key   string `koanf:"key" yaml:"key"`
	Order string `koanf:"order" yaml:"order"`
}

type PaymentSchema struct {
	Table          string `koanf:"table" yaml:"table"`
	Status         string `koanf:"status" yaml:"status"`
	Amount         string `koanf:"amount" yaml:"amount"`
	RefundedAmount string `koanf:"refunded_amount" yaml:"refunded_amount"`
	BankConfig     string `koanf:"bank_config" yaml:"bank_config"`
	ProviderRef    string `koanf:"provider_ref" yaml:"provider_ref"`
	Order          string `koanf:"order" yaml:"order"`
}

type BankConfigSchema struct {
	Table      string `koanf:"table" yaml:"table"`
	Code       string `koanf:"code" yaml:"code"`
	MerchantID string `koanf:"merchant_id" yaml:"merchant_id"`
	Endpoint   string `koanf:"endpoint" yaml:"endpoint"`
}

// Default returns the built-in configuration. Every value can be replaced
// from config.yaml or the environment.
func Default() Config {
	return Config{
		App: AppConfig{
			Name:     "lunchbox",
			HTTPAddr: ":3000",
			LogFile:  "./logs/lunchbox.log",
			LogLevel: "info",
		},
		Store: StoreConfig{
			Driver:  StoreAirtable,
			BaseURL: "https://api.airtable.com/v0",
			Timeout: 15 * time.Second,
		},
		Schema: DefaultSchema(),
		Ordering: OrderingConfig{
			DefaultTimeZone:        "Asia/Ho_Chi_Minh",
			SelfServiceExtrasLimit: 2,
			PageSize:               100,
			PaidContractTypes:      []string{"Employee Paid"},
			OnlinePaymentMethod:    "Online",
			UpcomingDays:           14,
			Consistency: ConsistencyConfig{
				Attempts:        6,
				InitialInterval: 150 * time.Millisecond,
				MaxInterval:     2 * time.Second,
			},
		},
		Database: DatabaseConfig{Port: 5432, Database: "lunchbox"},
		RabbitMQ: RabbitMQConfig{
			Port:     5672,
			Exchange: "lunch_orders",
			Queue:    "lunch_notifications",
			Prefetch: 10,
		},
		Redis: RedisConfig{TTL: 5 * time.Minute},
		Security: SecurityConfig{
			Issuer:   "lunchbox",
			Audience: "lunchbox-services",
			TTL:      60 * time.Minute,
		},
	}
}

func DefaultSchema() Schema {
	return Schema{
		Employees: EmployeeSchema{
			Table:   "Employees",
			OrgCode: "Org Code",
			Token:   "Token",
			Status:  "Status",
			Role:    "Role",
			Name:    "Full Name",
			Email:   "Email",
		},
		Organizations: OrganizationSchema{
			Table:            "Organizations",
			Code:             "Code",
			Name:             "Name",
			TimeZone:         "Time Zone",
			Cutoff:           "Cutoff Time",
			PrivilegedCutoff: "HR Cutoff Time",
			ContractType:     "Contract Type",
			StandardPrice:    "Standard Price",
			UpsizedPrice:     "Upsized Price",
			BankConfig:       "Bank Config",
		},
		Menu: MenuSchema{
			Table:     "Menu",
			Date:      "Date",
			Name:      "Dish Name",
			Category:  "Category",
			Published: "Published",
			Access:    "Access",
			Price:     "Price",
		},
		Orders: OrderSchema{
			Table:                   "Orders",
			DeliveryDate:            "Delivery Date",
			OrderType:               "Order Type",
			Status:                  "Status",
			Employee:                "Employee",
			PlacedBy:                "Placed By",
			PaymentMethod:           "Payment Method",
			PayableAmount:           "Payable Amount",
			Payment:                 "Payment",
			MealBoxLinkCandidates:   []string{"Meal Box", "Meal Boxes"},
			OrderLineLinkCandidates: []string{"Order Lines", "Order Line"},
		},
		MealBoxes: MealBoxSchema{
			Table:       "Meal Boxes",
			MainDish:    "Main Dish",
			SideDish:    "Side Dish",
			Quantity:    "Quantity",
			StandardQty: "Standard Qty",
			UpsizedQty:  "Upsized Qty",
		},
		OrderLines: OrderLineSchema{
			Table:    "Order Lines",
			Item:     "Item",
			Quantity: "Quantity",
		},
		RequestLog: RequestLogSchema{
			Table: "Request Log",
			Key:   "Key",
			Order: "Order",
		},
		Payments: PaymentSchema{
			Table:          "Payments",
			Status:         "Status",
			Amount:         "Amount",
			RefundedAmount: "Refunded Amount",
			BankConfig:     "Bank Config",
			ProviderRef:    "Provider Ref",
			Order:          "Order",
		},
		BankConfigs: BankConfigSchema{
			Table:      "Bank Configs",
			Code:       "Code",
			MerchantID: "Merchant ID",
			Endpoint:   "Endpoint",
		},
	}
}
