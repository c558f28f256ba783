package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/provalab/exam-cli/internal/pipeline"
	"github.com/provalab/exam-cli/internal/store"
	"github.com/provalab/exam-cli/pkg/docintel"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server for document processing requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{Handler: newServeMux(ctx, env)}

		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return eris.Wrap(err, "server listen")
		}

		zap.L().Info("starting server", zap.Int("port", port))
		return runServer(ctx, srv, ln)
	},
}

// shutdownGrace bounds how long in-flight requests may run after a
// shutdown signal.
const shutdownGrace = 10 * time.Second

// runServer serves on ln until ctx is canceled, then drains in-flight
// requests. The drain gets a fresh context, the signal context is already
// canceled at that point.
func runServer(ctx context.Context, srv *http.Server, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown incomplete", zap.Error(err))
		}
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server serve")
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// processRequest is the webhook body: an analyze result plus attribution.
type processRequest struct {
	UserKey  string          `json:"user_key"`
	Filename string          `json:"filename"`
	Result   json.RawMessage `json:"result"`
}

func newServeMux(ctx context.Context, env *pipelineEnv) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /webhook/process", func(w http.ResponseWriter, r *http.Request) {
		var req processRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if len(req.Result) == 0 {
			http.Error(w, `{"error":"result is required"}`, http.StatusBadRequest)
			return
		}

		result, err := docintel.ParseResult(req.Result)
		if err != nil {
			http.Error(w, `{"error":"invalid analyze result"}`, http.StatusBadRequest)
			return
		}

		// Process asynchronously; the webhook only acknowledges receipt.
		go func() {
			runCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Pipeline.TimeoutSecs)*time.Second)
			defer cancel()

			doc, err := env.Pipeline.Run(runCtx, pipeline.Input{
				Layout:   result.ToLayout(),
				UserKey:  req.UserKey,
				Filename: req.Filename,
			})
			if err != nil {
				zap.L().Error("webhook processing failed",
					zap.String("filename", req.Filename),
					zap.Error(err),
				)
				return
			}
			if err := env.Store.SaveDocument(ctx, doc); err != nil {
				zap.L().Error("webhook document save failed",
					zap.String("document_id", doc.ID),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("webhook processing complete",
				zap.String("document_id", doc.ID),
				zap.Int("questions", doc.QuestionCount()),
			)
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"status":   "accepted",
			"filename": req.Filename,
		})
	})

	mux.HandleFunc("GET /documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		doc, err := env.Store.GetDocument(r.Context(), r.PathValue("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, `{"error":"document not found"}`, http.StatusNotFound)
				return
			}
			zap.L().Error("document lookup failed", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
	})

	mux.HandleFunc("GET /documents", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		docs, err := env.Store.ListDocuments(r.Context(), store.DocumentFilter{
			UserKey: r.URL.Query().Get("user"),
			Limit:   limit,
		})
		if err != nil {
			zap.L().Error("document list failed", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(docs)
	})

	return mux
}
