package mockapi

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/smartfox/smartfox/internal/client"
	"github.com/smartfox/smartfox/internal/domain/models"
)

// Ограничения сервера
const (
	requestTimeout = 30 * time.Second
	maxUploadSize  = 32 << 20
)

// Server — мок REST API платформы для локальной разработки и тестов.
type Server struct {
	store *Store
	auth  *AuthService
	log   *slog.Logger
}

// NewServer создает сервер поверх хранилища store.
func NewServer(store *Store, auth *AuthService, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: store, auth: auth, log: log}
}

// Handler собирает роутер с путями, которые использует клиент.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.logRequests, middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", s.login)
		api.Post("/auth/register", s.register)

		api.Group(func(pr chi.Router) {
			pr.Use(JWTMiddleware(s.auth))

			pr.Get("/auth/profile", s.profile)
			pr.Get("/experiments/{experimentID}/files", s.listFiles)
			pr.Get("/experiments/{experimentID}/files/{name}/download", s.downloadFile)
			pr.Get("/student_list", s.studentList)

			pr.Route("/teacher", func(tr chi.Router) {
				tr.Use(RequireRole(models.RoleTeacher))

				tr.Get("/experiments", s.listExperiments)
				tr.Post("/experiments", s.createExperiment)
				tr.Get("/experiments/notifications", s.teacherNotifications)
				tr.Post("/experiments/notifications", s.createNotification)
				tr.Get("/experiments/{experimentID}", s.getExperiment)
				tr.Put("/experiments/{experimentID}", s.updateExperiment)
				tr.Delete("/experiments/{experimentID}", s.deleteExperiment)
				tr.Post("/experiments/{experimentID}/uploadFile", s.uploadFile)
				tr.Delete("/experiments/{experimentID}/files/{name}", s.deleteFile)
				tr.Get("/experiments/{experimentID}/{studentID}/submissions", s.studentSubmission)

				tr.Get("/students", s.listStudents)
				tr.Get("/groups", s.listGroups)
				tr.Post("/groups", s.saveGroup)
				tr.Put("/groups/{groupID}", s.saveGroup)
				tr.Delete("/groups/{groupID}", s.deleteGroup)
			})

			pr.Route("/student", func(sr chi.Router) {
				sr.Use(RequireRole(models.RoleStudent))

				sr.Get("/experiments", s.listExperiments)
				sr.Get("/experiments/notifications/{studentID}", s.studentNotifications)
				sr.Get("/experiments/{experimentID}", s.getExperiment)
				sr.Post("/experiments/{experimentID}/save", s.saveAnswers)
				sr.Post("/experiments/{experimentID}/submit", s.submitAnswers)
				sr.Get("/submissions", s.listSubmissions)
			})
		})
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds client.Credentials
	if err := decodeBody(r, &creds); err != nil {
		writeStoreError(w, err)
		return
	}

	u, err := s.store.Authenticate(creds.Name, creds.Password)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	token, err := s.auth.IssueJWT(u)
	if err != nil {
		s.log.Error("failed to issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	// Сервер входа отвечает в другом конверте: {code, message, data}.
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"code":    http.StatusOK,
		"message": "login success",
		"data":    map[string]string{"token": token},
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var creds client.Credentials
	if err := decodeBody(r, &creds); err != nil {
		writeStoreError(w, err)
		return
	}

	if _, err := s.store.Register(creds.Name, creds.Password, creds.Role); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{Status: "success", Message: "registered"})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Profile(claimsFromContext(r.Context()).UserID())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (s *Server) listExperiments(w http.ResponseWriter, r *http.Request) {
	list, meta := s.store.ListExperiments(claimsFromContext(r.Context()), r.URL.Query().Get("status"), pageOf(r))
	writePage(w, list, meta)
}

func (s *Server) getExperiment(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.Experiment(claimsFromContext(r.Context()), chi.URLParam(r, "experimentID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeData(w, http.StatusOK, e)
}

func (s *Server) createExperiment(w http.ResponseWriter, r *http.Request) {
	var in models.ExperimentInput
	if err := decodeBody(r, &in); err != nil {
		writeStoreError(w, err)
		return
	}

	id, err := s.store.CreateExperiment(claimsFromContext(r.Context()), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeData(w, http.StatusCreated, map[string]string{"experiment_id": id})
}

func (s *Server) updateExperiment(w http.ResponseWriter, r *http.Request) {
	var in models.ExperimentInput
	if err := decodeBody(r, &in); err != nil {
		writeStoreError(w, err)
		return
	}

	if err := s.store.UpdateExperiment(claimsFromContext(r.Context()), chi.URLParam(r, "experimentID"), in); err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, "experiment updated")
}

func (s *Server) deleteExperiment(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteExperiment(claimsFromContext(r.Context()), chi.URLParam(r, "experimentID")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, "experiment deleted")
}

type answersRequest struct {
	Answers []models.AnswerInput `json:"answers"`
}

func (s *Server) saveAnswers(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if err := decodeBody(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}

	if err := s.store.SaveAnswers(claimsFromContext(r.Context()), chi.URLParam(r, "experimentID"), req.Answers); err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, "answers saved")
}

func (s *Server) submitAnswers(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if err := decodeBody(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}

	if err := s.store.SubmitAnswers(claimsFromContext(r.Context()), chi.URLParam(r, "experimentID"), req.Answers); err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, "answers submitted")
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.Files(chi.URLParam(r, "experimentID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "files": files})
}

func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	data, err := s.store.File(chi.URLParam(r, "experimentID"), name)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	if err = s.store.PutFile(claimsFromContext(r.Context()), chi.URLParam(r, "experimentID"), header.Filename, data); err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, "file uploaded")
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteFile(claimsFromContext(r.Context()), chi.URLParam(r, "experimentID"), chi.URLParam(r, "name"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, "file deleted")
}

func (s *Server) studentSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.store.StudentSubmission(claimsFromContext(r.Context()), chi.URLParam(r, "experimentID"), chi.URLParam(r, "studentID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeData(w, http.StatusOK, sub)
}

func (s *Server) listSubmissions(w http.ResponseWriter, r *http.Request) {
	list, meta := s.store.Submissions(claimsFromContext(r.Context()), pageOf(r))
	writePage(w, list, meta)
}

func (s *Server) createNotification(w http.ResponseWriter, r *http.Request) {
	var n models.Notification
	if err := decodeBody(r, &n); err != nil {
		writeStoreError(w, err)
		return
	}

	created, err := s.store.CreateNotification(n)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeData(w, http.StatusCreated, created)
}

func (s *Server) teacherNotifications(w http.ResponseWriter, r *http.Request) {
	list, meta := s.store.Notifications("", pageOf(r))
	writePage(w, list, meta)
}

func (s *Server) studentNotifications(w http.ResponseWriter, r *http.Request) {
	c := claimsFromContext(r.Context())
	studentID := chi.URLParam(r, "studentID")
	if studentID != strconv.Itoa(c.UserID()) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	list, meta := s.store.Notifications(studentID, pageOf(r))
	writePage(w, list, meta)
}

func (s *Server) listStudents(w http.ResponseWriter, r *http.Request) {
	list, meta, err := s.store.Students(r.URL.Query().Get("group_id"), pageOf(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writePage(w, list, meta)
}

func (s *Server) studentList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"student_ids": s.store.StudentIDs(),
	})
}

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	list, meta := s.store.Groups(pageOf(r))
	writePage(w, list, meta)
}

func (s *Server) saveGroup(w http.ResponseWriter, r *http.Request) {
	var in client.GroupInput
	if err := decodeBody(r, &in); err != nil {
		writeStoreError(w, err)
		return
	}

	g, err := s.store.SaveGroup(chi.URLParam(r, "groupID"), in.GroupName, in.StudentIDs)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeData(w, status, g)
}

func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteGroup(chi.URLParam(r, "groupID")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, "group deleted")
}

func pageOf(r *http.Request) Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return Page{Page: page, Limit: limit}
}
