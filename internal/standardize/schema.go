package standardize

// Statically declared schema descriptors, validated structurally before any
// column is read. A source export missing one of these columns fails as a
// schema mismatch, not mid-transformation.

var ledgerSchema = []string{
	"Contract.WorkingContractID",
	"ManufacturerNumber",
	"VendorItem",
	"ItemNumber",
	"ItemDescription",
	"BaseCost",
	"UOM",
	"DerivedUOMConversion",
	"EffectiveDate",
	"ExpirationDate",
	"ContractLine",
	"Manufacturer",
	"Vendor",
	"ItemType",
	"OnHold",
	"ActiveLine",
	"ContractLineState",
	"Contract.ContractStatus",
}

var ledgerImportSchema = []string{
	"ContractImport.WorkingContractID",
	"ManufacturerInformation",
	"VendorItem",
	"ItemNumber",
	"ItemDescription",
	"BaseCost",
	"UOM",
	"UOMConversion",
	"EffectiveDate",
	"ExpirationDate",
	"ContractLineImport",
	"ContractImport.Vendor",
}

var hubSchema = []string{
	"Contract Number",
	"Mfg Part Num",
	"Vendor Part Num",
	"Buyer Part Num",
	"Description",
	"Contract Price",
	"UOM",
	"QOE",
	"Effective Date",
	"Expiration Date",
	"Manufacturer",
	"Vendor",
}

// SubmissionTemplateSchema is the column set user workbooks must follow.
// Sheet names carry contract numbers.
var SubmissionTemplateSchema = []string{
	"Mfg Part Num",
	"Vendor Part Num",
	"Buyer Part Num",
	"Description",
	"Contract Price",
	"UOM",
	"QOE",
	"Effective Date",
	"Expiration Date",
}

// PrecheckedSchema is the schema of the combined prechecked submission
// artifact, the handoff between precheck and standardization.
var PrecheckedSchema = []string{
	"Mfg Part Num",
	"MFN RF",
	"Vendor Part Num",
	"Buyer Part Num",
	"Description",
	"Contract Price",
	"UOM",
	"UOM STD",
	"QOE",
	"Effective Date",
	"Expiration Date",
	"Contract Number",
	"File Name",
}
