package domain

// ObjectSchema describes how one record kind is fetched upstream and which
// of its fields are encoded into the anthem.
type ObjectSchema struct {
	Object    string   `yaml:"object" json:"object"`
	KeyField  string   `yaml:"keyField" json:"keyField"`                       // field matched against the lookup value
	LinkField string   `yaml:"linkField,omitempty" json:"linkField,omitempty"` // primary field holding this record's key (related)
	Fields    []string `yaml:"fields" json:"fields"`
	OrderBy   []string `yaml:"orderBy,omitempty" json:"orderBy,omitempty"`
	Limit     int      `yaml:"limit,omitempty" json:"limit,omitempty"`
}

// Objects groups the three record kinds composed into an anthem.
type Objects struct {
	Primary   ObjectSchema `yaml:"primary" json:"primary"`
	Secondary ObjectSchema `yaml:"secondary" json:"secondary"`
	Related   ObjectSchema `yaml:"related" json:"related"`
}

// DefaultObjects returns the opportunity / line item / account layout.
func DefaultObjects() Objects {
	return Objects{
		Primary: ObjectSchema{
			Object:   "Opportunity",
			KeyField: "Id",
			Fields: []string{
				"Name",
				"AccountId",
				"StageName",
				"Amount",
				"TotalOpportunityQuantity",
				"CloseDate",
				"Type",
				"Probability",
				"LeadSource",
				"Description",
				"NextStep",
			},
		},
		Secondary: ObjectSchema{
			Object:   "OpportunityLineItem",
			KeyField: "OpportunityId",
			Fields: []string{
				"Quantity",
				"UnitPrice",
				"TotalPrice",
				"Description",
				"ServiceDate",
			},
			OrderBy: []string{"SortOrder", "Id"},
			Limit:   10,
		},
		Related: ObjectSchema{
			Object:    "Account",
			KeyField:  "Id",
			LinkField: "AccountId",
			Fields: []string{
				"Name",
				"AccountNumber",
				"Industry",
				"Type",
				"Rating",
				"Ownership",
				"AccountSource",
				"Description",
				"Site",
				"Tradestyle",
				"Phone",
				"Fax",
				"Website",
				"BillingStreet",
				"BillingCity",
				"BillingState",
				"BillingPostalCode",
				"BillingCountry",
				"ShippingStreet",
				"ShippingCity",
				"ShippingState",
				"ShippingPostalCode",
				"ShippingCountry",
				"AnnualRevenue",
				"NumberOfEmployees",
				"YearStarted",
				"Sic",
				"SicDesc",
				"NaicsCode",
				"NaicsDesc",
				"TickerSymbol",
				"DunsNumber",
			},
		},
	}
}
