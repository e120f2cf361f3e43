package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jrsteele09/medix-console/gateway"
)

const DashboardPath = "/reports/dashboard/"

type ReportsAPI struct {
	requester
}

// Dashboard returns the role-branched summary for the calling user
func (r *ReportsAPI) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	var summary DashboardSummary
	if err := r.doer.Do(ctx, gateway.Request{Method: http.MethodGet, Path: DashboardPath}, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Inventory takes overview, valuation or movement; empty means overview
func (r *ReportsAPI) Inventory(ctx context.Context, reportType string) (json.RawMessage, error) {
	return r.get(ctx, "/reports/inventory/", optional("type", reportType))
}

func (r *ReportsAPI) Sales(ctx context.Context, n int) (json.RawMessage, error) {
	return r.get(ctx, "/reports/sales/", optional("days", days(n)))
}

// DashboardSummary holds every section any role may receive; absent sections stay nil
type DashboardSummary struct {
	Inventory     *InventorySummary     `json:"inventory,omitempty"`
	Sales         *SalesSummary         `json:"sales,omitempty"`
	Prescriptions *PrescriptionsSummary `json:"prescriptions,omitempty"`
	Users         *UsersSummary         `json:"users,omitempty"`
	Patients      *PatientsSummary      `json:"patients,omitempty"`
	Purchases     *PurchasesSummary     `json:"purchases,omitempty"`
	Alerts        *Alerts               `json:"alerts,omitempty"`
}

type InventorySummary struct {
	TotalDrugs int    `json:"total_drugs"`
	LowStock   int    `json:"low_stock"`
	OutOfStock int    `json:"out_of_stock"`
	TotalValue Amount `json:"total_value"`
}

type SalesSummary struct {
	Today             int    `json:"today"`
	TodayRevenue      Amount `json:"today_revenue"`
	Last30Days        int    `json:"last_30_days"`
	Last30DaysRevenue Amount `json:"last_30_days_revenue"`
}

// PrescriptionsSummary merges the staff view (pending, filled today, active) with the
// doctor and patient views (issued or received totals and the recent list)
type PrescriptionsSummary struct {
	Pending     int                  `json:"pending"`
	FilledToday int                  `json:"filled_today"`
	TotalActive int                  `json:"total_active"`
	TotalIssued int                  `json:"total_issued"`
	Total       int                  `json:"total"`
	Filled      int                  `json:"filled"`
	Recent      []RecentPrescription `json:"recent,omitempty"`
}

type RecentPrescription struct {
	ID                 int64  `json:"id"`
	PrescriptionNumber string `json:"prescription_number"`
	PatientFirstName   string `json:"patient__first_name,omitempty"`
	PatientLastName    string `json:"patient__last_name,omitempty"`
	DoctorFirstName    string `json:"doctor__first_name,omitempty"`
	DoctorLastName     string `json:"doctor__last_name,omitempty"`
	Status             string `json:"status"`
	CreatedAt          string `json:"created_at"`
}

// Counterpart returns the other party of the prescription: the patient for a doctor, the doctor for a patient
func (p RecentPrescription) Counterpart() string {
	if p.PatientFirstName != "" || p.PatientLastName != "" {
		return p.PatientFirstName + " " + p.PatientLastName
	}
	return p.DoctorFirstName + " " + p.DoctorLastName
}

type UsersSummary struct {
	Total       int `json:"total"`
	Patients    int `json:"patients"`
	Doctors     int `json:"doctors"`
	Pharmacists int `json:"pharmacists"`
}

type PatientsSummary struct {
	Total int `json:"total"`
}

type PurchasesSummary struct {
	Total      int    `json:"total"`
	TotalSpent Amount `json:"total_spent"`
}

type Alerts struct {
	LowStockDrugs        int `json:"low_stock_drugs"`
	ExpiringDrugs        int `json:"expiring_drugs"`
	PendingPrescriptions int `json:"pending_prescriptions"`
}

// Any reports whether at least one alert counter is non-zero
func (a *Alerts) Any() bool {
	return a != nil && (a.LowStockDrugs > 0 || a.ExpiringDrugs > 0 || a.PendingPrescriptions > 0)
}

// Amount is a money value sent either as a JSON number or as a decimal string
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*a = 0
			return nil
		}
		data = []byte(s)
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", data, err)
	}
	*a = Amount(v)
	return nil
}

func (a Amount) String() string {
	return strconv.FormatFloat(float64(a), 'f', 2, 64)
}
