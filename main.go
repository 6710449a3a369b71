// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/profiler"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/krishikarobar/storefront/backend"
	"github.com/krishikarobar/storefront/cart"
	"github.com/krishikarobar/storefront/catalog"
	"github.com/krishikarobar/storefront/config"
	"github.com/krishikarobar/storefront/live"
	"github.com/krishikarobar/storefront/session"
)

const (
	cookiePrefix    = "krishi_"
	cookieSessionID = cookiePrefix + "session-id"
	cookieTheme     = cookiePrefix + "theme"
	cookieFlash     = cookiePrefix + "flash"
)

var (
	baseUrl = ""
)

type ctxKeySessionID struct{}

type frontendServer struct {
	cfg config.Config

	api      *backend.Client
	sessions *session.Manager
	cart     *cart.Service
	tracker  *catalog.Tracker

	counters      *live.Hub[live.Counters]
	conversations *live.Hub[[]*backend.Message]
	upgrader      websocket.Upgrader
}

func newFrontendServer(cfg config.Config, api *backend.Client, store session.Store, log logrus.FieldLogger) *frontendServer {
	return &frontendServer{
		cfg:           cfg,
		api:           api,
		sessions:      session.NewManager(store, api, log.WithField("component", "session")),
		cart:          cart.NewService(api, log.WithField("component", "cart")),
		tracker:       catalog.NewTracker(),
		counters:      live.NewHub[live.Counters]("counters", cfg.Poll.Counters, log),
		conversations: live.NewHub[[]*backend.Message]("conversations", cfg.Poll.Conversation, log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logrus.New()
	log.Level = logrus.DebugLevel
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		log.Fatal(err)
	}
	log.Level = cfg.Level()
	baseUrl = cfg.BaseURL

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))

	var tp *sdktrace.TracerProvider
	if cfg.EnableTracing {
		log.Info("Tracing enabled.")
		if tp, err = initTracing(log, ctx, cfg.CollectorAddr); err != nil {
			log.Warnf("warn: failed to start tracer: %+v", err)
		}
	} else {
		log.Info("Tracing disabled.")
	}

	if cfg.EnableProfiler {
		log.Info("Profiling enabled.")
		go initProfiling(log, "storefront", "1.0.0")
	} else {
		log.Info("Profiling disabled.")
	}

	api, err := backend.New(cfg.BackendAddr,
		backend.WithHTTPClient(&http.Client{
			Timeout:   cfg.BackendTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
		backend.WithLogger(log.WithField("component", "backend")))
	if err != nil {
		log.Fatal(err)
	}

	var store session.Store
	if cfg.RedisURL != "" {
		rs, err := session.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL())
		if err != nil {
			log.Fatal(errors.Wrap(err, "could not connect to session store"))
		}
		defer rs.Close()
		store = rs
		log.Info("using redis session store")
	} else {
		store = session.NewMemoryStore(cfg.SessionTTL())
		log.Info("using in-memory session store")
	}

	svc := newFrontendServer(cfg, api, store, log)
	srv := &http.Server{
		Addr:              cfg.ListenAddr + ":" + cfg.Port,
		Handler:           svc.routes(log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("starting server on %s:%s", cfg.ListenAddr, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithField("error", err).Warn("server shutdown")
	}
	svc.counters.Close()
	svc.conversations.Close()
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.WithField("error", err).Warn("tracer shutdown")
		}
	}
}

func (fe *frontendServer) routes(log *logrus.Logger) http.Handler {
	r := mux.NewRouter()
	r.PathPrefix(baseUrl + "/static/").Handler(http.StripPrefix(baseUrl+"/static/", http.FileServer(http.Dir("./static/"))))
	r.HandleFunc(baseUrl+"/robots.txt", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "User-agent: *\nDisallow: /") })
	r.HandleFunc(baseUrl+"/_healthz", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "ok") })

	p := r.NewRoute().Subrouter()
	p.Use(fe.authenticate)

	p.HandleFunc(baseUrl+"/", fe.homeHandler).Methods(http.MethodGet, http.MethodHead)
	p.HandleFunc(baseUrl+"/home", fe.homeHandler).Methods(http.MethodGet, http.MethodHead)
	p.HandleFunc(baseUrl+"/products", fe.productsHandler).Methods(http.MethodGet, http.MethodHead)
	p.HandleFunc(baseUrl+"/products/{id:[0-9]+}", fe.productHandler(false)).Methods(http.MethodGet, http.MethodHead)
	p.HandleFunc(baseUrl+"/inventory/{id:[0-9]+}", fe.productHandler(true)).Methods(http.MethodGet, http.MethodHead)
	p.HandleFunc(baseUrl+"/api/products", fe.liveSearchHandler).Methods(http.MethodGet)
	p.HandleFunc(baseUrl+"/api/subcategories", fe.subcategoriesHandler).Methods(http.MethodGet)
	p.HandleFunc(baseUrl+"/about", fe.aboutHandler).Methods(http.MethodGet, http.MethodHead)
	p.HandleFunc(baseUrl+"/contact", fe.contactPageHandler).Methods(http.MethodGet, http.MethodHead)
	p.HandleFunc(baseUrl+"/contact", fe.contactSubmitHandler).Methods(http.MethodPost)
	p.HandleFunc(baseUrl+"/login", fe.loginPageHandler).Methods(http.MethodGet, http.MethodHead)
	p.HandleFunc(baseUrl+"/login", fe.loginSubmitHandler).Methods(http.MethodPost)
	p.HandleFunc(baseUrl+"/register", fe.registerPageHandler).Methods(http.MethodGet, http.MethodHead)
	p.HandleFunc(baseUrl+"/register", fe.registerSubmitHandler).Methods(http.MethodPost)
	p.HandleFunc(baseUrl+"/logout", fe.logoutHandler).Methods(http.MethodPost)
	p.HandleFunc(baseUrl+"/theme", fe.setThemeHandler).Methods(http.MethodPost)
	p.HandleFunc(baseUrl+"/cart", fe.viewCartHandler).Methods(http.MethodGet, http.MethodHead)

	customer := requireUserType(backend.Customer, "/login", msgCustomerOnly)
	p.Handle(baseUrl+"/cart/items", customer(fe.addToCartHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/cart/items/{id:[0-9]+}/quantity", customer(fe.updateQuantityHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/cart/items/{id:[0-9]+}/note", customer(fe.updateNoteHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/cart/items/{id:[0-9]+}/remove", customer(fe.removeCartItemHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/cart/checkout", customer(fe.placeOrderHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/farmers", customer(fe.farmersHandler)).Methods(http.MethodGet, http.MethodHead)

	p.Handle(baseUrl+"/orders/now", requireAuth(fe.orderNowHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/my-orders", requireAuth(fe.ordersHandler)).Methods(http.MethodGet, http.MethodHead)
	p.Handle(baseUrl+"/my-orders/{id:[0-9]+}/cancel", requireAuth(fe.cancelOrderHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/reviews/{kind}/{product:[0-9]+}", requireAuth(fe.createReviewHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/reviews/{kind}/{id:[0-9]+}/edit", requireAuth(fe.editReviewHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/reviews/{kind}/{id:[0-9]+}/delete", requireAuth(fe.deleteReviewHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/reviews/{kind}/{id:[0-9]+}/{action:like|dislike|unlike}", requireAuth(fe.reactReviewHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/messages", requireAuth(fe.messagesHandler)).Methods(http.MethodGet, http.MethodHead)
	p.Handle(baseUrl+"/messages/send", requireAuth(fe.sendMessageHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/notifications", requireAuth(fe.notificationsHandler)).Methods(http.MethodGet, http.MethodHead)
	p.Handle(baseUrl+"/notifications/{id:[0-9]+}/read", requireAuth(fe.markNotificationReadHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/notifications/{id:[0-9]+}/clear", requireAuth(fe.clearNotificationHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/customer-profile", requireAuth(fe.customerProfileHandler)).Methods(http.MethodGet, http.MethodHead)
	p.Handle(baseUrl+"/customer-profile", requireAuth(fe.updateProfileHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/farmer-profile", requireAuth(fe.farmerProfileHandler)).Methods(http.MethodGet, http.MethodHead)
	p.Handle(baseUrl+"/farmer-profile", requireAuth(fe.updateProfileHandler)).Methods(http.MethodPost)

	farmer := requireUserType(backend.Farmer, "/customer-profile", "")
	p.Handle(baseUrl+"/dashboard", farmer(fe.dashboardHandler)).Methods(http.MethodGet, http.MethodHead)
	p.Handle(baseUrl+"/dashboard/order-items/{id:[0-9]+}/status", farmer(fe.orderItemStatusHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/dashboard/order-items/{id:[0-9]+}/delete", farmer(fe.deleteOrderItemHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/dashboard/products/new", farmer(fe.newProductHandler)).Methods(http.MethodGet, http.MethodHead)
	p.Handle(baseUrl+"/dashboard/products", farmer(fe.createProductHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/dashboard/products/delete", farmer(fe.bulkDeleteProductsHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/dashboard/products/{id:[0-9]+}/edit", farmer(fe.editProductHandler)).Methods(http.MethodGet, http.MethodHead)
	p.Handle(baseUrl+"/dashboard/products/{id:[0-9]+}", farmer(fe.updateProductHandler)).Methods(http.MethodPost)
	p.Handle(baseUrl+"/dashboard/products/{id:[0-9]+}/delete", farmer(fe.deleteProductHandler)).Methods(http.MethodPost)

	p.Handle(baseUrl+"/ws/live", requireAuth(fe.liveSocketHandler)).Methods(http.MethodGet)
	p.Handle(baseUrl+"/ws/conversations/{id:[0-9]+}", requireAuth(fe.conversationSocketHandler)).Methods(http.MethodGet)
	p.Handle(baseUrl+"/api/live", requireAuth(fe.liveSnapshotHandler)).Methods(http.MethodGet)

	var handler http.Handler = r
	handler = &logHandler{log: log, next: handler}          // add logging
	handler = ensureSessionID(handler, fe.cfg.CookieMaxAge) // add session ID
	handler = otelhttp.NewHandler(handler, "storefront")    // add OTel tracing
	return handler
}

func initTracing(log logrus.FieldLogger, ctx context.Context, collectorAddr string) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithSampler(sdktrace.AlwaysSample())}
	if collectorAddr != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(collectorAddr),
			otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, errors.Wrap(err, "failed to create trace exporter")
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		log.WithField("collector", collectorAddr).Info("exporting traces")
	} else {
		log.Info("Tracing provider initialized (no exporter configured)")
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp, nil
}

func initProfiling(log logrus.FieldLogger, service, version string) {
	for i := 1; i <= 3; i++ {
		log = log.WithField("retry", i)
		if err := profiler.Start(profiler.Config{
			Service:        service,
			ServiceVersion: version,
			// ProjectID must be set if not running on GCP.
			// ProjectID: "my-project",
		}); err != nil {
			log.Warnf("warn: failed to start profiler: %+v", err)
		} else {
			log.Info("started Stackdriver profiler")
			return
		}
		d := time.Second * 10 * time.Duration(i)
		log.Debugf("sleeping %v to retry initializing Stackdriver profiler", d)
		time.Sleep(d)
	}
	log.Warn("warning: could not initialize Stackdriver profiler after retrying, giving up")
}
