package handlers

import (
	"net/http"

	"github.com/satheeshds/roomrent/models"
)

const roomSelectQuery = `SELECT r.id, r.room_number, r.floor, r.room_type, r.monthly_rent, r.capacity, r.status,
		r.description, r.created_at, r.updated_at,
		(SELECT COUNT(*) FROM tenants t WHERE t.room_id = r.id AND t.status = 'Active')::INT
		FROM rooms r`

func scanRoom(scanner interface{ Scan(...any) error }) (models.Room, error) {
	var rm models.Room
	err := scanner.Scan(&rm.ID, &rm.RoomNumber, &rm.Floor, &rm.RoomType, &rm.MonthlyRent, &rm.Capacity, &rm.Status,
		&rm.Description, &rm.CreatedAt, &rm.UpdatedAt, &rm.ActiveTenants)
	return rm, err
}

func getRoomByID(r *http.Request, id int) (models.Room, error) {
	return scanRoom(DB.QueryRow(r.Context(), roomSelectQuery+" WHERE r.id = $1", id))
}

// ListRooms lists rooms
// @Summary      List rooms
// @Description  Get all rooms with their current number of active tenants.
// @Tags         rooms
// @Produce      json
// @Param        status  query     string  false  "Filter by status (Available, Occupied, Maintenance)"
// @Param        floor   query     int     false  "Filter by floor"
// @Param        search  query     string  false  "Search by room number or type"
// @Success      200     {object}  Response{data=[]models.Room}
// @Router       /rooms [get]
// @Security     BearerAuth
func ListRooms(w http.ResponseWriter, r *http.Request) {
	var f filter
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		f.add("r.status = ?", s)
	}
	if fl := q.Get("floor"); fl != "" {
		f.add("r.floor = ?::INT", fl)
	}
	if search := q.Get("search"); search != "" {
		s := "%" + search + "%"
		f.add("(r.room_number ILIKE ? OR r.room_type ILIKE ?)", s, s)
	}

	rows, err := DB.Query(r.Context(), roomSelectQuery+f.where()+" ORDER BY r.room_number", f.args...)
	if err != nil {
		writeServiceError(w, r, "room", err)
		return
	}
	defer rows.Close()

	rooms := []models.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			writeServiceError(w, r, "room", err)
			return
		}
		rooms = append(rooms, rm)
	}
	writeJSON(w, http.StatusOK, rooms)
}

// GetRoom retrieves a single room by ID
// @Summary      Get room
// @Tags         rooms
// @Produce      json
// @Param        id   path      int  true  "Room ID"
// @Success      200  {object}  Response{data=models.Room}
// @Failure      404  {object}  Response
// @Router       /rooms/{id} [get]
// @Security     BearerAuth
func GetRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	rm, err := getRoomByID(r, id)
	if err != nil {
		writeServiceError(w, r, "room", err)
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

// CreateRoom creates a new room
// @Summary      Create room
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        room  body      models.RoomInput  true  "Room contents"
// @Success      201   {object}  Response{data=models.Room}
// @Failure      400   {object}  Response
// @Failure      409   {object}  Response
// @Router       /rooms [post]
// @Security     BearerAuth
func CreateRoom(w http.ResponseWriter, r *http.Request) {
	var input models.RoomInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var id int
	err := DB.QueryRow(r.Context(), `INSERT INTO rooms (room_number, floor, room_type, monthly_rent, capacity, status, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		input.RoomNumber, input.Floor, input.RoomType, input.MonthlyRent, input.Capacity, input.Status, input.Description).Scan(&id)
	if err != nil {
		writeServiceError(w, r, "room", err)
		return
	}

	rm, err := getRoomByID(r, id)
	if err != nil {
		writeServiceError(w, r, "room", err)
		return
	}
	writeJSON(w, http.StatusCreated, rm)
}

// UpdateRoom updates an existing room
// @Summary      Update room
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        id    path      int               true  "Room ID"
// @Param        room  body      models.RoomInput  true  "Updated room contents"
// @Success      200   {object}  Response{data=models.Room}
// @Failure      400   {object}  Response
// @Failure      404   {object}  Response
// @Router       /rooms/{id} [put]
// @Security     BearerAuth
func UpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var input models.RoomInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	tag, err := DB.Exec(r.Context(), `UPDATE rooms SET room_number = $1, floor = $2, room_type = $3, monthly_rent = $4,
		capacity = $5, status = $6, description = $7, updated_at = now() WHERE id = $8`,
		input.RoomNumber, input.Floor, input.RoomType, input.MonthlyRent, input.Capacity, input.Status, input.Description, id)
	if err != nil {
		writeServiceError(w, r, "room", err)
		return
	}
	if tag.RowsAffected() == 0 {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	rm, err := getRoomByID(r, id)
	if err != nil {
		writeServiceError(w, r, "room", err)
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

// DeleteRoom deletes a room
// @Summary      Delete room
// @Description  Remove a room. Rooms still assigned to tenants cannot be deleted.
// @Tags         rooms
// @Produce      json
// @Param        id   path      int  true  "Room ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  Response
// @Failure      409  {object}  Response
// @Router       /rooms/{id} [delete]
// @Security     BearerAuth
func DeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	tag, err := DB.Exec(r.Context(), "DELETE FROM rooms WHERE id = $1", id)
	if err != nil {
		writeServiceError(w, r, "room", err)
		return
	}
	if tag.RowsAffected() == 0 {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	writeMessage(w, http.StatusOK, "room deleted")
}
