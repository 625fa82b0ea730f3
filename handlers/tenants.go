package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/satheeshds/roomrent/billing"
	"github.com/satheeshds/roomrent/models"
)

var (
	errRoomFull        = errors.New("room is at full capacity")
	errRoomUnavailable = errors.New("room is under maintenance")
	errTenantMovedOut  = errors.New("tenant has already moved out")
)

const tenantSelectQuery = `SELECT t.id, t.full_name, t.phone, t.email, t.id_number, t.room_id, t.move_in_date,
		t.move_out_date, t.deposit, t.status, t.notes, t.created_at, t.updated_at,
		r.room_number,
		COALESCE((SELECT SUM(i.remaining_balance) FROM invoices i WHERE i.tenant_id = t.id AND i.status <> 'Cancelled'), 0)::BIGINT
		FROM tenants t
		LEFT JOIN rooms r ON t.room_id = r.id`

func scanTenant(scanner interface{ Scan(...any) error }) (models.Tenant, error) {
	var t models.Tenant
	err := scanner.Scan(&t.ID, &t.FullName, &t.Phone, &t.Email, &t.IDNumber, &t.RoomID, &t.MoveInDate,
		&t.MoveOutDate, &t.Deposit, &t.Status, &t.Notes, &t.CreatedAt, &t.UpdatedAt,
		&t.RoomNumber, &t.Outstanding)
	return t, err
}

func getTenantByID(r *http.Request, id int) (models.Tenant, error) {
	return scanTenant(DB.QueryRow(r.Context(), tenantSelectQuery+" WHERE t.id = $1", id))
}

// occupyRoom checks that a room can take one more active tenant and marks it
// occupied. tenantID is excluded from the head count so a tenant can be saved
// again without changing rooms.
func occupyRoom(ctx context.Context, tx pgx.Tx, roomID, tenantID int) error {
	var status string
	var capacity, active int
	err := tx.QueryRow(ctx, `SELECT r.status, r.capacity,
		(SELECT COUNT(*) FROM tenants t WHERE t.room_id = r.id AND t.status = 'Active' AND t.id <> $2)::INT
		FROM rooms r WHERE r.id = $1 FOR UPDATE OF r`, roomID, tenantID).Scan(&status, &capacity, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("room %d: %w", roomID, billing.ErrRoomNotFound)
	}
	if err != nil {
		return err
	}
	if status == models.RoomMaintenance {
		return errRoomUnavailable
	}
	if active >= capacity {
		return fmt.Errorf("%w (%d of %d)", errRoomFull, active, capacity)
	}
	_, err = tx.Exec(ctx, `UPDATE rooms SET status = 'Occupied', updated_at = now() WHERE id = $1 AND status <> 'Occupied'`, roomID)
	return err
}

// releaseRoom marks a room available once no active tenant remains in it.
func releaseRoom(ctx context.Context, tx pgx.Tx, roomID *int) error {
	if roomID == nil {
		return nil
	}
	_, err := tx.Exec(ctx, `UPDATE rooms SET status = 'Available', updated_at = now()
		WHERE id = $1 AND status = 'Occupied'
		AND NOT EXISTS (SELECT 1 FROM tenants WHERE room_id = $1 AND status = 'Active')`, *roomID)
	return err
}

// ListTenants lists tenants
// @Summary      List tenants
// @Description  Get all tenants with their room and outstanding balance.
// @Tags         tenants
// @Produce      json
// @Param        status   query     string  false  "Filter by status (Active, MovedOut)"
// @Param        room_id  query     int     false  "Filter by room"
// @Param        search   query     string  false  "Search by name, phone or email"
// @Success      200      {object}  Response{data=[]models.Tenant}
// @Router       /tenants [get]
// @Security     BearerAuth
func ListTenants(w http.ResponseWriter, r *http.Request) {
	var f filter
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		f.add("t.status = ?", s)
	}
	if rid := q.Get("room_id"); rid != "" {
		f.add("t.room_id = ?::INT", rid)
	}
	if search := q.Get("search"); search != "" {
		s := "%" + search + "%"
		f.add("(t.full_name ILIKE ? OR t.phone ILIKE ? OR t.email ILIKE ?)", s, s, s)
	}

	rows, err := DB.Query(r.Context(), tenantSelectQuery+f.where()+" ORDER BY t.full_name", f.args...)
	if err != nil {
		writeServiceError(w, r, "tenant", err)
		return
	}
	defer rows.Close()

	tenants := []models.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			writeServiceError(w, r, "tenant", err)
			return
		}
		tenants = append(tenants, t)
	}
	writeJSON(w, http.StatusOK, tenants)
}

// GetTenant retrieves a single tenant by ID
// @Summary      Get tenant
// @Tags         tenants
// @Produce      json
// @Param        id   path      int  true  "Tenant ID"
// @Success      200  {object}  Response{data=models.Tenant}
// @Failure      404  {object}  Response
// @Router       /tenants/{id} [get]
// @Security     BearerAuth
func GetTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	t, err := getTenantByID(r, id)
	if err != nil {
		writeServiceError(w, r, "tenant", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTenant creates a new tenant
// @Summary      Create tenant
// @Description  Register a tenant, optionally assigning a room. The room must have free capacity.
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        tenant  body      models.TenantInput  true  "Tenant contents"
// @Success      201     {object}  Response{data=models.Tenant}
// @Failure      400     {object}  Response
// @Router       /tenants [post]
// @Security     BearerAuth
func CreateTenant(w http.ResponseWriter, r *http.Request) {
	var input models.TenantInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	moveIn := input.MoveIn
	if moveIn == nil && input.RoomID != nil {
		today := models.DateOnly(time.Now())
		moveIn = &today
	}

	var id int
	err := pgx.BeginFunc(r.Context(), DB, func(tx pgx.Tx) error {
		if input.RoomID != nil {
			if err := occupyRoom(r.Context(), tx, *input.RoomID, 0); err != nil {
				return err
			}
		}
		return tx.QueryRow(r.Context(), `INSERT INTO tenants (full_name, phone, email, id_number, room_id, move_in_date, deposit, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			input.FullName, input.Phone, input.Email, input.IDNumber, input.RoomID, moveIn, input.Deposit, input.Notes).Scan(&id)
	})
	if err != nil {
		writeServiceError(w, r, "tenant", err)
		return
	}

	t, err := getTenantByID(r, id)
	if err != nil {
		writeServiceError(w, r, "tenant", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// UpdateTenant updates an existing tenant
// @Summary      Update tenant
// @Description  Update tenant details. Changing the room frees the old one and occupies the new one.
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        id      path      int                 true  "Tenant ID"
// @Param        tenant  body      models.TenantInput  true  "Updated tenant contents"
// @Success      200     {object}  Response{data=models.Tenant}
// @Failure      400     {object}  Response
// @Failure      404     {object}  Response
// @Router       /tenants/{id} [put]
// @Security     BearerAuth
func UpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var input models.TenantInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	err := pgx.BeginFunc(r.Context(), DB, func(tx pgx.Tx) error {
		var oldRoom *int
		var status string
		var moveIn *time.Time
		err := tx.QueryRow(r.Context(), "SELECT room_id, status, move_in_date FROM tenants WHERE id = $1 FOR UPDATE", id).
			Scan(&oldRoom, &status, &moveIn)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("tenant %d: %w", id, billing.ErrTenantNotFound)
		}
		if err != nil {
			return err
		}
		roomChanged := !sameID(oldRoom, input.RoomID)
		if roomChanged && status == models.TenantMovedOut {
			return errTenantMovedOut
		}
		if roomChanged && input.RoomID != nil {
			if err := occupyRoom(r.Context(), tx, *input.RoomID, id); err != nil {
				return err
			}
		}
		if input.MoveIn != nil {
			moveIn = input.MoveIn
		}
		_, err = tx.Exec(r.Context(), `UPDATE tenants SET full_name = $1, phone = $2, email = $3, id_number = $4,
			room_id = $5, move_in_date = $6, deposit = $7, notes = $8, updated_at = now() WHERE id = $9`,
			input.FullName, input.Phone, input.Email, input.IDNumber, input.RoomID, moveIn, input.Deposit, input.Notes, id)
		if err != nil {
			return err
		}
		if roomChanged {
			return releaseRoom(r.Context(), tx, oldRoom)
		}
		return nil
	})
	if err != nil {
		writeServiceError(w, r, "tenant", err)
		return
	}
	t, err := getTenantByID(r, id)
	if err != nil {
		writeServiceError(w, r, "tenant", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// MoveOutTenant records a tenant leaving
// @Summary      Move out tenant
// @Description  Mark a tenant as moved out and free their room when it becomes empty.
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        id    path      int                  true   "Tenant ID"
// @Param        body  body      models.MoveOutInput  false  "Move-out date (defaults to today)"
// @Success      200   {object}  Response{data=models.Tenant}
// @Failure      400   {object}  Response
// @Failure      404   {object}  Response
// @Router       /tenants/{id}/move-out [post]
// @Security     BearerAuth
func MoveOutTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var input models.MoveOutInput
	if !decodeOptionalJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(time.Now()); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	err := pgx.BeginFunc(r.Context(), DB, func(tx pgx.Tx) error {
		var roomID *int
		var status string
		err := tx.QueryRow(r.Context(), "SELECT room_id, status FROM tenants WHERE id = $1 FOR UPDATE", id).Scan(&roomID, &status)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("tenant %d: %w", id, billing.ErrTenantNotFound)
		}
		if err != nil {
			return err
		}
		if status == models.TenantMovedOut {
			return errTenantMovedOut
		}
		_, err = tx.Exec(r.Context(), `UPDATE tenants SET status = 'MovedOut', move_out_date = $1, updated_at = now()
			WHERE id = $2`, input.Date, id)
		if err != nil {
			return err
		}
		return releaseRoom(r.Context(), tx, roomID)
	})
	if err != nil {
		writeServiceError(w, r, "tenant", err)
		return
	}
	t, err := getTenantByID(r, id)
	if err != nil {
		writeServiceError(w, r, "tenant", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTenant deletes a tenant
// @Summary      Delete tenant
// @Description  Remove a tenant. Tenants with invoices cannot be deleted; move them out instead.
// @Tags         tenants
// @Produce      json
// @Param        id   path      int  true  "Tenant ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  Response
// @Failure      409  {object}  Response
// @Router       /tenants/{id} [delete]
// @Security     BearerAuth
func DeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	err := pgx.BeginFunc(r.Context(), DB, func(tx pgx.Tx) error {
		var roomID *int
		err := tx.QueryRow(r.Context(), "DELETE FROM tenants WHERE id = $1 RETURNING room_id", id).Scan(&roomID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("tenant %d: %w", id, billing.ErrTenantNotFound)
		}
		if err != nil {
			return err
		}
		return releaseRoom(r.Context(), tx, roomID)
	})
	if err != nil {
		writeServiceError(w, r, "tenant", err)
		return
	}
	writeMessage(w, http.StatusOK, "tenant deleted")
}

func sameID(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
