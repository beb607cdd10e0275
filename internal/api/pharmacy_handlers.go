package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-workflow-engine/internal/pharmacy"
)

func createMedicineHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateMedicineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var expiry *time.Time
		if req.ExpiryDate != "" {
			t, ok := parseDate(req.ExpiryDate)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_date", "expiry_date must be YYYY-MM-DD")
				return
			}
			expiry = &t
		}

		res, err := svc.CreateMedicine(r.Context(), pharmacy.CreateMedicineParams{
			SKU:               req.SKU,
			Name:              req.Name,
			InitialStock:      req.InitialStock,
			StockCapacity:     req.StockCapacity,
			ReorderLevel:      req.ReorderLevel,
			LowStockThreshold: req.LowStockThreshold,
			ExpiryDate:        expiry,
			Actor:             req.Actor,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, res)
	}
}

func applyStockActionHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_medicine_id", "id must be a valid UUID")
			return
		}

		var req StockActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var (
			res    *pharmacy.StockResult
			actErr error
		)

		switch req.Action {
		case "restock":
			res, actErr = svc.Restock(r.Context(), id, req.Quantity, req.Reference, req.Actor)
		case "dispense":
			res, actErr = svc.Dispense(r.Context(), pharmacy.DispenseParams{
				MedicineID:      id,
				Quantity:        req.Quantity,
				PatientName:     req.PatientName,
				PrescriptionRef: req.PrescriptionRef,
				Actor:           req.Actor,
			})
		case "adjust_stock":
			res, actErr = svc.AdjustStock(r.Context(), id, req.Quantity, req.Reason, req.Actor)
		case "archive_medicine":
			res, actErr = svc.ArchiveMedicine(r.Context(), id, req.Actor)
		default:
			writeError(w, http.StatusBadRequest, "unknown_action", "action must be restock, dispense, adjust_stock, or archive_medicine")
			return
		}

		if actErr != nil {
			writeDomainError(w, actErr)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func getMedicineHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_medicine_id", "id must be a valid UUID")
			return
		}

		m, err := svc.GetMedicine(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, m)
	}
}

func listMovementsHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_medicine_id", "id must be a valid UUID")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		movements, err := svc.Movements(r.Context(), id, limit)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, movements)
	}
}

func createDispenseRequestHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDispenseRequestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		medID, err := uuid.Parse(req.MedicineID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_medicine_id", "medicine_id must be a valid UUID")
			return
		}

		dr, err := svc.CreateDispenseRequest(r.Context(), pharmacy.DispenseRequestParams{
			MedicineID:      medID,
			Quantity:        req.Quantity,
			PatientName:     req.PatientName,
			PrescriptionRef: req.PrescriptionRef,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, dr)
	}
}

func fulfillDispenseRequestHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_id", "id must be a valid UUID")
			return
		}

		var req StockActionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		res, err := svc.Fulfill(r.Context(), id, req.Actor)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func cancelDispenseRequestHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_id", "id must be a valid UUID")
			return
		}

		dr, err := svc.CancelDispenseRequest(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, dr)
	}
}
