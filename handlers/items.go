package handlers

import (
	"net/http"

	"github.com/satheeshds/roomrent/models"
)

const itemSelectQuery = `SELECT id, name, unit, unit_price, description, is_active, created_at, updated_at FROM items`

func scanItem(scanner interface{ Scan(...any) error }) (models.Item, error) {
	var it models.Item
	err := scanner.Scan(&it.ID, &it.Name, &it.Unit, &it.UnitPrice, &it.Description, &it.IsActive, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

// ListItems lists chargeable items
// @Summary      List items
// @Tags         items
// @Produce      json
// @Param        active  query     bool    false  "Filter by active flag"
// @Param        search  query     string  false  "Search by name"
// @Success      200     {object}  Response{data=[]models.Item}
// @Router       /items [get]
// @Security     BearerAuth
func ListItems(w http.ResponseWriter, r *http.Request) {
	var f filter
	if a := r.URL.Query().Get("active"); a != "" {
		f.add("is_active = ?::BOOLEAN", a)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		f.add("name ILIKE ?", "%"+search+"%")
	}

	rows, err := DB.Query(r.Context(), itemSelectQuery+f.where()+" ORDER BY name", f.args...)
	if err != nil {
		writeServiceError(w, r, "item", err)
		return
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			writeServiceError(w, r, "item", err)
			return
		}
		items = append(items, it)
	}
	writeJSON(w, http.StatusOK, items)
}

// GetItem retrieves a single item
// @Summary      Get item
// @Tags         items
// @Produce      json
// @Param        id   path      int  true  "Item ID"
// @Success      200  {object}  Response{data=models.Item}
// @Failure      404  {object}  Response
// @Router       /items/{id} [get]
// @Security     BearerAuth
func GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	it, err := scanItem(DB.QueryRow(r.Context(), itemSelectQuery+" WHERE id = $1", id))
	if err != nil {
		writeServiceError(w, r, "item", err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// CreateItem creates a chargeable item
// @Summary      Create item
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        item  body      models.ItemInput  true  "Item contents"
// @Success      201   {object}  Response{data=models.Item}
// @Failure      400   {object}  Response
// @Failure      409   {object}  Response
// @Router       /items [post]
// @Security     BearerAuth
func CreateItem(w http.ResponseWriter, r *http.Request) {
	var input models.ItemInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	it, err := scanItem(DB.QueryRow(r.Context(), `INSERT INTO items (name, unit, unit_price, description, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, unit, unit_price, description, is_active, created_at, updated_at`,
		input.Name, input.Unit, input.UnitPrice, input.Description, *input.IsActive))
	if err != nil {
		writeServiceError(w, r, "item", err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

// UpdateItem updates a chargeable item
// @Summary      Update item
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        id    path      int               true  "Item ID"
// @Param        item  body      models.ItemInput  true  "Updated item contents"
// @Success      200   {object}  Response{data=models.Item}
// @Failure      400   {object}  Response
// @Failure      404   {object}  Response
// @Router       /items/{id} [put]
// @Security     BearerAuth
func UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var input models.ItemInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	it, err := scanItem(DB.QueryRow(r.Context(), `UPDATE items SET name = $1, unit = $2, unit_price = $3, description = $4,
		is_active = $5, updated_at = now() WHERE id = $6
		RETURNING id, name, unit, unit_price, description, is_active, created_at, updated_at`,
		input.Name, input.Unit, input.UnitPrice, input.Description, *input.IsActive, id))
	if err != nil {
		writeServiceError(w, r, "item", err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// DeleteItem deletes a chargeable item
// @Summary      Delete item
// @Description  Remove an item. Existing invoice lines keep their description and price.
// @Tags         items
// @Produce      json
// @Param        id   path      int  true  "Item ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  Response
// @Router       /items/{id} [delete]
// @Security     BearerAuth
func DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	tag, err := DB.Exec(r.Context(), "DELETE FROM items WHERE id = $1", id)
	if err != nil {
		writeServiceError(w, r, "item", err)
		return
	}
	if tag.RowsAffected() == 0 {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeMessage(w, http.StatusOK, "item deleted")
}
