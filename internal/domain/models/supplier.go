package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidSupplier indicates a supplier payload failed validation.
var ErrInvalidSupplier = errors.New("invalid supplier")

var postalCodePattern = regexp.MustCompile(`^\d{5}$`)

// Supplier is a rubber supplier from the upstream master data.
type Supplier struct {
	ID                string   `json:"id,omitempty"`
	Code              string   `json:"code"`
	Title             string   `json:"title,omitempty"`
	FirstName         string   `json:"first_name"`
	LastName          string   `json:"last_name,omitempty"`
	Address           string   `json:"address,omitempty"`
	ProvinceID        string   `json:"province_id,omitempty"`
	DistrictID        string   `json:"district_id,omitempty"`
	SubdistrictID     string   `json:"subdistrict_id,omitempty"`
	PostalCode        string   `json:"postal_code,omitempty"`
	Phone             string   `json:"phone,omitempty"`
	CertificateNumber string   `json:"certificate_number,omitempty"`
	CertificateExpire string   `json:"certificate_expire,omitempty"`
	RubberTypeIDs     []string `json:"rubber_type_ids,omitempty"`
	Quota             *float64 `json:"quota,omitempty"`
	Score             *float64 `json:"score,omitempty"`
}

// FullName joins title, first and last name.
func (s Supplier) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.Title, s.FirstName, s.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Validate checks the fields required before a supplier is sent upstream.
func (s Supplier) Validate() error {
	switch {
	case strings.TrimSpace(s.Code) == "":
		return fmt.Errorf("%w: code is required", ErrInvalidSupplier)
	case strings.TrimSpace(s.FirstName) == "":
		return fmt.Errorf("%w: first_name is required", ErrInvalidSupplier)
	case s.PostalCode != "" && !postalCodePattern.MatchString(s.PostalCode):
		return fmt.Errorf("%w: postal_code must be 5 digits", ErrInvalidSupplier)
	case s.Quota != nil && *s.Quota < 0:
		return fmt.Errorf("%w: quota must not be negative", ErrInvalidSupplier)
	}
	return nil
}

// SupplierFromRecord maps an upstream supplier object.
func SupplierFromRecord(r Record) Supplier {
	s := Supplier{
		ID:                r.String("id", "_id", "supplier_id"),
		Code:              r.String("code", "supplier_code", "supplierCode"),
		Title:             r.String("title", "prefix", "title_name"),
		FirstName:         r.String("first_name", "firstName", "name"),
		LastName:          r.String("last_name", "lastName"),
		Address:           r.String("address", "address_line"),
		ProvinceID:        r.String("province_id", "provinceId", "province"),
		DistrictID:        r.String("district_id", "districtId", "district"),
		SubdistrictID:     r.String("subdistrict_id", "subdistrictId", "subdistrict"),
		PostalCode:        r.String("postal_code", "postalCode", "zipcode", "zip_code"),
		Phone:             r.String("phone", "phone_number", "tel"),
		CertificateNumber: r.String("certificate_number", "certificateNumber", "cert_no"),
		CertificateExpire: r.String("certificate_expire", "certificateExpire", "cert_expire"),
		RubberTypeIDs:     r.Strings("rubber_type_ids", "rubberTypeIds", "rubber_types"),
		Quota:             r.Float("quota"),
		Score:             r.Float("score"),
	}
	return s
}
