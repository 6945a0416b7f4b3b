package http

import (
	"net/http"
)

type backupRequest struct {
	Password string `json:"password"`
}

type restoreRequest struct {
	Content  string `json:"content"`
	Password string `json:"password"`
}

func (s *Server) handleBackups(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries, err := s.backups.ListBackups(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)

	case http.MethodPost:
		var req backupRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		entry, err := s.backups.Backup(r.Context(), req.Password)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Backup error", "error", err)
			writeDomainError(w, err)
			return
		}

		s.logger.InfoContext(r.Context(), "Backup created",
			"id", entry.ID,
			"size", entry.Size)
		writeJSON(w, http.StatusCreated, entry)

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleBackupByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, "DELETE")
		return
	}

	id := r.PathValue("id")
	if err := s.backups.DeleteBackup(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Backup deleted", "id", id)
	writeJSON(w, http.StatusNoContent, nil)
}

// handleImport merges a backup into the current account. The profile is only
// adopted when the snapshot belongs to the same user.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req restoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.backups.ImportFrom(r.Context(), req.Content, req.Password); err != nil {
		s.logger.WarnContext(r.Context(), "Backup import failed", "error", err)
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Backup imported")
	writeJSON(w, http.StatusNoContent, nil)
}

// handleRestoreUser restores a full account from a backup, adopting the
// snapshot's identity. Used on a fresh device before login.
func (s *Server) handleRestoreUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req restoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.backups.RestoreUserFromBackup(r.Context(), req.Content, req.Password); err != nil {
		s.logger.WarnContext(r.Context(), "User restore failed", "error", err)
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "User restored from backup")
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	csv, err := s.backups.Export(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Export error", "error", err)
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="kanakku-export.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(csv))
}
