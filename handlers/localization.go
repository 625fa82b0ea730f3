package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/satheeshds/roomrent/models"
)

var errDefaultLanguage = errors.New("the default language cannot be deleted or deactivated")

const languageSelectQuery = `SELECT l.code, l.name, l.is_default, l.is_active,
	(SELECT COUNT(*) FROM translations t WHERE t.language_code = l.code)::INT
	FROM languages l`

func scanLanguage(scanner interface{ Scan(...any) error }) (models.Language, error) {
	var l models.Language
	err := scanner.Scan(&l.Code, &l.Name, &l.IsDefault, &l.IsActive, &l.TranslationCount)
	return l, err
}

// ListLanguages lists languages
// @Summary      List languages
// @Tags         localization
// @Produce      json
// @Param        active  query     bool  false  "Only active languages"
// @Success      200     {object}  Response{data=[]models.Language}
// @Router       /localization/languages [get]
func ListLanguages(w http.ResponseWriter, r *http.Request) {
	var f filter
	if a := r.URL.Query().Get("active"); a != "" {
		f.add("l.is_active = ?::BOOLEAN", a)
	}
	rows, err := DB.Query(r.Context(), languageSelectQuery+f.where()+" ORDER BY l.is_default DESC, l.code", f.args...)
	if err != nil {
		writeServiceError(w, r, "language", err)
		return
	}
	defer rows.Close()

	languages := []models.Language{}
	for rows.Next() {
		l, err := scanLanguage(rows)
		if err != nil {
			writeServiceError(w, r, "language", err)
			return
		}
		languages = append(languages, l)
	}
	writeJSON(w, http.StatusOK, languages)
}

// GetTranslations returns the translation table for a language
// @Summary      Get translations
// @Description  Key/value strings for one language. Keys missing from the language fall back to the default language.
// @Tags         localization
// @Produce      json
// @Param        code  path      string  true  "Language code"
// @Success      200   {object}  Response{data=map[string]string}
// @Failure      404   {object}  Response
// @Router       /localization/{code} [get]
func GetTranslations(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if _, err := scanLanguage(DB.QueryRow(r.Context(), languageSelectQuery+" WHERE l.code = $1", code)); err != nil {
		writeServiceError(w, r, "language", err)
		return
	}

	// Default language rows first so the requested language overrides them.
	rows, err := DB.Query(r.Context(), `SELECT t.key, t.value FROM translations t
		JOIN languages l ON l.code = t.language_code
		WHERE t.language_code = $1 OR l.is_default
		ORDER BY (t.language_code = $1), t.key`, code)
	if err != nil {
		writeServiceError(w, r, "translation", err)
		return
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			writeServiceError(w, r, "translation", err)
			return
		}
		out[k] = v
	}
	writeJSON(w, http.StatusOK, out)
}

// clearDefault unsets the current default language other than code.
func clearDefault(ctx context.Context, tx pgx.Tx, code string) error {
	_, err := tx.Exec(ctx, "UPDATE languages SET is_default = false WHERE is_default AND code <> $1", code)
	return err
}

// CreateLanguage adds a language
// @Summary      Create language
// @Tags         localization
// @Accept       json
// @Produce      json
// @Param        language  body      models.LanguageInput  true  "Language"
// @Success      201       {object}  Response{data=models.Language}
// @Failure      400       {object}  Response
// @Failure      409       {object}  Response
// @Router       /localization/languages [post]
// @Security     BearerAuth
func CreateLanguage(w http.ResponseWriter, r *http.Request) {
	var input models.LanguageInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var l models.Language
	err := pgx.BeginFunc(r.Context(), DB, func(tx pgx.Tx) error {
		if input.IsDefault {
			if err := clearDefault(r.Context(), tx, input.Code); err != nil {
				return err
			}
		}
		_, err := tx.Exec(r.Context(), "INSERT INTO languages (code, name, is_default, is_active) VALUES ($1, $2, $3, $4)",
			input.Code, input.Name, input.IsDefault, *input.IsActive)
		if err != nil {
			return err
		}
		l, err = scanLanguage(tx.QueryRow(r.Context(), languageSelectQuery+" WHERE l.code = $1", input.Code))
		return err
	})
	if err != nil {
		writeServiceError(w, r, "language", err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// UpdateLanguage updates a language
// @Summary      Update language
// @Description  Rename, activate or make a language the default. Setting a new default clears the old one.
// @Tags         localization
// @Accept       json
// @Produce      json
// @Param        code      path      string                true  "Language code"
// @Param        language  body      models.LanguageInput  true  "Language"
// @Success      200       {object}  Response{data=models.Language}
// @Failure      400       {object}  Response
// @Failure      404       {object}  Response
// @Router       /localization/languages/{code} [put]
// @Security     BearerAuth
func UpdateLanguage(w http.ResponseWriter, r *http.Request) {
	var input models.LanguageInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Code = chi.URLParam(r, "code")
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var l models.Language
	err := pgx.BeginFunc(r.Context(), DB, func(tx pgx.Tx) error {
		var wasDefault bool
		err := tx.QueryRow(r.Context(), "SELECT is_default FROM languages WHERE code = $1 FOR UPDATE", input.Code).Scan(&wasDefault)
		if err != nil {
			return err
		}
		// The default can only move by promoting another language.
		if wasDefault && (!input.IsDefault || !*input.IsActive) {
			return errDefaultLanguage
		}
		if input.IsDefault && !wasDefault {
			if err := clearDefault(r.Context(), tx, input.Code); err != nil {
				return err
			}
		}
		_, err = tx.Exec(r.Context(), "UPDATE languages SET name = $1, is_default = $2, is_active = $3 WHERE code = $4",
			input.Name, input.IsDefault, *input.IsActive, input.Code)
		if err != nil {
			return err
		}
		l, err = scanLanguage(tx.QueryRow(r.Context(), languageSelectQuery+" WHERE l.code = $1", input.Code))
		return err
	})
	if err != nil {
		writeServiceError(w, r, "language", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// DeleteLanguage deletes a language and its translations
// @Summary      Delete language
// @Tags         localization
// @Produce      json
// @Param        code  path      string  true  "Language code"
// @Success      200   {object}  Response
// @Failure      400   {object}  Response
// @Failure      404   {object}  Response
// @Router       /localization/languages/{code} [delete]
// @Security     BearerAuth
func DeleteLanguage(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	err := pgx.BeginFunc(r.Context(), DB, func(tx pgx.Tx) error {
		var isDefault bool
		if err := tx.QueryRow(r.Context(), "SELECT is_default FROM languages WHERE code = $1 FOR UPDATE", code).Scan(&isDefault); err != nil {
			return err
		}
		if isDefault {
			return errDefaultLanguage
		}
		_, err := tx.Exec(r.Context(), "DELETE FROM languages WHERE code = $1", code)
		return err
	})
	if err != nil {
		writeServiceError(w, r, "language", err)
		return
	}
	writeMessage(w, http.StatusOK, "language deleted")
}

// UpsertTranslations writes a batch of translations
// @Summary      Upsert translations
// @Description  Insert or replace the given keys for a language. Keys not in the body are left alone.
// @Tags         localization
// @Accept       json
// @Produce      json
// @Param        code          path      string                    true  "Language code"
// @Param        translations  body      models.TranslationsInput  true  "Translations"
// @Success      200           {object}  Response
// @Failure      400           {object}  Response
// @Failure      404           {object}  Response
// @Router       /localization/{code}/translations [put]
// @Security     BearerAuth
func UpsertTranslations(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var input models.TranslationsInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	err := pgx.BeginFunc(r.Context(), DB, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(r.Context(), "SELECT true FROM languages WHERE code = $1", code).Scan(&exists); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for k, v := range input.Translations {
			batch.Queue(`INSERT INTO translations (language_code, key, value) VALUES ($1, $2, $3)
				ON CONFLICT (language_code, key) DO UPDATE SET value = EXCLUDED.value`, code, k, v)
		}
		return tx.SendBatch(r.Context(), batch).Close()
	})
	if err != nil {
		writeServiceError(w, r, "language", err)
		return
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("%d translations saved", len(input.Translations)))
}

// DeleteTranslation removes one translation key
// @Summary      Delete translation
// @Tags         localization
// @Produce      json
// @Param        code  path      string  true  "Language code"
// @Param        key   path      string  true  "Translation key"
// @Success      200   {object}  Response
// @Failure      404   {object}  Response
// @Router       /localization/{code}/translations/{key} [delete]
// @Security     BearerAuth
func DeleteTranslation(w http.ResponseWriter, r *http.Request) {
	tag, err := DB.Exec(r.Context(), "DELETE FROM translations WHERE language_code = $1 AND key = $2",
		chi.URLParam(r, "code"), chi.URLParam(r, "key"))
	if err != nil {
		writeServiceError(w, r, "translation", err)
		return
	}
	if tag.RowsAffected() == 0 {
		writeError(w, http.StatusNotFound, "translation not found")
		return
	}
	writeMessage(w, http.StatusOK, "translation deleted")
}
