// Package lookup loads the externally maintained reference tables the
// pipeline consults: UOM synonyms, manufacturer and vendor code maps, item
// valid-buying-UOM conversions, and the contract organization registry.
// Tables are loaded fresh per call; absent keys resolve to the TBD
// sentinel rather than failing.
package lookup

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"clrecon/internal/tabfile"
	"clrecon/internal/util"
)

const Sentinel = "TBD"

const (
	uomFile          = "UOM.csv"
	manufacturerFile = "Manufacturers.csv"
	vendorFile       = "Suppliers.csv"
	itemUOMFile      = "ItemUOM.csv"
	registryFile     = "ContractOrganization.xlsx"
)

// UOMTable maps raw unit spellings to their standardized unit.
type UOMTable struct {
	synonyms map[string]string
}

var uomSchema = []string{"see UOM", "use UOM"}

func LoadUOMTable(sharedDir string) (*UOMTable, error) {
	tbl, err := tabfile.ReadCSV(filepath.Join(sharedDir, uomFile))
	if err != nil {
		return nil, err
	}
	if err := tbl.Require(uomSchema); err != nil {
		return nil, err
	}

	t := &UOMTable{synonyms: make(map[string]string, tbl.Len())}
	for _, row := range tbl.Rows {
		seen := strings.ToUpper(tbl.Get(row, "see UOM"))
		use := tbl.Get(row, "use UOM")
		if seen == "" || use == "" {
			continue
		}
		t.synonyms[seen] = use
	}
	return t, nil
}

// Normalize standardizes a raw UOM spelling. Sentinel means the unit is
// unrecognized and must be treated as a validation failure by the caller.
func (t *UOMTable) Normalize(raw string) string {
	if std, ok := t.synonyms[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return std
	}
	return Sentinel
}

// Manufacturers maps manufacturer codes to display names.
type Manufacturers struct {
	names map[string]string
}

var manufacturerSchema = []string{"Manufacturer", "Description"}

func LoadManufacturers(sharedDir string) (*Manufacturers, error) {
	tbl, err := tabfile.ReadCSV(filepath.Join(sharedDir, manufacturerFile))
	if err != nil {
		return nil, err
	}
	if err := tbl.Require(manufacturerSchema); err != nil {
		return nil, err
	}

	m := &Manufacturers{names: make(map[string]string, tbl.Len())}
	for _, row := range tbl.Rows {
		code := tbl.Get(row, "Manufacturer")
		if code == "" {
			continue
		}
		m.names[code] = tbl.Get(row, "Description")
	}
	return m, nil
}

func (m *Manufacturers) Name(code string) string {
	if name, ok := m.names[strings.TrimSpace(code)]; ok && name != "" {
		return name
	}
	return Sentinel
}

// VendorInfo carries a vendor's registered name and sales representative.
type VendorInfo struct {
	Name           string
	Representative string
}

type Vendors struct {
	byCode map[string]VendorInfo
}

var vendorSchema = []string{"Vendor", "Vendor.VendorName", "RepresentativeText"}

func LoadVendors(sharedDir string) (*Vendors, error) {
	tbl, err := tabfile.ReadCSV(filepath.Join(sharedDir, vendorFile))
	if err != nil {
		return nil, err
	}
	if err := tbl.Require(vendorSchema); err != nil {
		return nil, err
	}

	v := &Vendors{byCode: make(map[string]VendorInfo, tbl.Len())}
	for _, row := range tbl.Rows {
		code := tbl.Get(row, "Vendor")
		if code == "" {
			continue
		}
		v.byCode[code] = VendorInfo{
			Name:           tbl.Get(row, "Vendor.VendorName"),
			Representative: tbl.Get(row, "RepresentativeText"),
		}
	}
	return v, nil
}

func (v *Vendors) Info(code string) VendorInfo {
	if info, ok := v.byCode[strings.TrimSpace(code)]; ok {
		return info
	}
	return VendorInfo{Name: Sentinel, Representative: Sentinel}
}

// BuyUOM is one registered buying unit for an item with its conversion
// factor to eaches.
type BuyUOM struct {
	UOM            string
	Conversion     float64
	ValidForBuying bool
}

// ItemUOMs indexes registered buying units by internal item number.
type ItemUOMs struct {
	byItem map[string][]BuyUOM
}

var itemUOMSchema = []string{"Item", "UnitOfMeasure", "UOMConversion", "ValidForBuying", "Item.Active"}

func LoadItemUOMs(sharedDir string) (*ItemUOMs, error) {
	tbl, err := tabfile.ReadCSV(filepath.Join(sharedDir, itemUOMFile))
	if err != nil {
		return nil, err
	}
	if err := tbl.Require(itemUOMSchema); err != nil {
		return nil, err
	}

	i := &ItemUOMs{byItem: make(map[string][]BuyUOM)}
	for _, row := range tbl.Rows {
		item := tbl.Get(row, "Item")
		if item == "" || tbl.Get(row, "Item.Active") != "Active" {
			continue
		}
		conv, _ := util.ParseQuantity(tbl.Get(row, "UOMConversion"))
		i.byItem[item] = append(i.byItem[item], BuyUOM{
			UOM:            tbl.Get(row, "UnitOfMeasure"),
			Conversion:     conv,
			ValidForBuying: tbl.Get(row, "ValidForBuying") != "Not Valid",
		})
	}
	return i, nil
}

// ValidBuying returns the valid buying units registered for an item.
// Empty means the item has no valid buying UOM mapping at all.
func (i *ItemUOMs) ValidBuying(item string) []BuyUOM {
	var out []BuyUOM
	for _, u := range i.byItem[strings.TrimSpace(item)] {
		if u.ValidForBuying {
			out = append(out, u)
		}
	}
	return out
}

// Describe renders the valid buying set as "EA*1,CS*12" for reports.
func (i *ItemUOMs) Describe(item string) string {
	valid := i.ValidBuying(item)
	if len(valid) == 0 {
		return ""
	}
	parts := make([]string, 0, len(valid))
	for _, u := range valid {
		parts = append(parts, u.UOM+"*"+strconv.FormatFloat(u.Conversion, 'f', -1, 64))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// OrgEntry is one contract registration in the contracting system's
// organization registry.
type OrgEntry struct {
	ContractNumber  string
	Manufacturer    string
	Vendor          string
	ERPVendorNumber string
}

type Registry struct {
	Entries []OrgEntry
}

var registrySchema = []string{"Contract Number", "Manufacturer", "Vendor", "ERP Vendor Number"}

func LoadRegistry(sharedDir string) (*Registry, error) {
	sheets, err := tabfile.ReadWorkbook(filepath.Join(sharedDir, registryFile))
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return &Registry{}, nil
	}
	tbl := sheets[0]
	if err := tbl.Require(registrySchema); err != nil {
		return nil, err
	}

	r := &Registry{Entries: make([]OrgEntry, 0, tbl.Len())}
	for _, row := range tbl.Rows {
		r.Entries = append(r.Entries, OrgEntry{
			ContractNumber:  tbl.Get(row, "Contract Number"),
			Manufacturer:    tbl.Get(row, "Manufacturer"),
			Vendor:          tbl.Get(row, "Vendor"),
			ERPVendorNumber: tbl.Get(row, "ERP Vendor Number"),
		})
	}
	return r, nil
}
