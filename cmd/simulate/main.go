package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/medical-appointment-scheduler/internal/auth"
	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
	"github.com/hackgods/medical-appointment-scheduler/internal/config"
	"github.com/hackgods/medical-appointment-scheduler/internal/db"
	"github.com/hackgods/medical-appointment-scheduler/internal/logging"
)

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	BookingRatio  float64
	CompleteRatio float64
	ReadRatio     float64
	ExplicitRatio float64 // share of bookings that request a time
	DoctorLimit   int
	PatientLimit  int
	Days          int // bookings spread over this many days from today
}

type identity struct {
	ID    uuid.UUID
	Email string
	Token string
}

type booked struct {
	ID       uuid.UUID
	DoctorID uuid.UUID
}

// DataPool holds the identities the workers act as and the appointments
// they have created so far.
type DataPool struct {
	Doctors      []identity
	Patients     []identity
	doctorTokens map[uuid.UUID]string
	mu           sync.Mutex
	appointments []booked
}

func (dp *DataPool) AddAppointment(b booked) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, b)
}

// TakeAppointment removes and returns a random appointment, so two workers
// never complete the same one.
func (dp *DataPool) TakeAppointment(rng *rand.Rand) (booked, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if len(dp.appointments) == 0 {
		return booked{}, false
	}
	idx := rng.Intn(len(dp.appointments))
	b := dp.appointments[idx]
	dp.appointments[idx] = dp.appointments[len(dp.appointments)-1]
	dp.appointments = dp.appointments[:len(dp.appointments)-1]
	return b, true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]

	return avg, min, max, p50, p95
}

func percentileIndex(n, pct int) int {
	idx := n * pct / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Booking    OperationMetrics
	Complete   OperationMetrics
	Latest     OperationMetrics
	DoctorList OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	logger  zerolog.Logger
	metrics Metrics
	today   clock.Date
}

// conflictCodes are the booking rejections a correct server produces under
// contention. Anything else counts as an error.
var conflictCodes = map[string]bool{
	"slot_already_booked":     true,
	"insufficient_separation": true,
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		logging.Bootstrap().Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(baseCfg.Env, baseCfg.LogLevel)

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("complete", cfg.CompleteRatio).
		Float64("read", cfg.ReadRatio).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, db.PoolConfig{DSN: baseCfg.PostgresDSN})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	issuer := auth.NewIssuer(baseCfg.JWTSecret, baseCfg.JWTIssuer, cfg.Duration+time.Hour)
	dataPool, err := loadDataPool(ctx, pgPool, issuer, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}

	logger.Info().Int("doctors", len(dataPool.Doctors)).Int("patients", len(dataPool.Patients)).Msg("data pool loaded")

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		today:  clock.DateOf(time.Now()),
	}

	sim.Run()
	sim.PrintReport()

	dupes, err := countDuplicateSlots(context.Background(), pgPool)
	if err != nil {
		logger.Error().Err(err).Msg("duplicate slot check failed")
		os.Exit(1)
	}
	fmt.Printf("Duplicate slots in store: %d\n", dupes)
	if dupes > 0 {
		os.Exit(1)
	}
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:    getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 10),
		BookingRatio:  getFloat("SIM_BOOKING_RATIO", 0.6),
		CompleteRatio: getFloat("SIM_COMPLETE_RATIO", 0.1),
		ReadRatio:     getFloat("SIM_READ_RATIO", 0.3),
		ExplicitRatio: getFloat("SIM_EXPLICIT_RATIO", 0.5),
		DoctorLimit:   getInt("SIM_DOCTOR_LIMIT", 5),
		PatientLimit:  getInt("SIM_PATIENT_LIMIT", 200),
		Days:          getInt("SIM_DAYS", 3),
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.CompleteRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.CompleteRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Days <= 0 {
		return fmt.Errorf("SIM_DAYS must be > 0")
	}
	return nil
}

func loadIdentities(ctx context.Context, pool *pgxpool.Pool, query string, limit int, issuer *auth.Issuer, role auth.Role) ([]identity, error) {
	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []identity
	for rows.Next() {
		var id identity
		if err := rows.Scan(&id.ID, &id.Email); err != nil {
			return nil, err
		}
		id.Token, err = issuer.Issue(auth.Identity{Subject: id.ID, Role: role, Email: id.Email})
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, issuer *auth.Issuer, cfg SimConfig) (*DataPool, error) {
	doctors, err := loadIdentities(ctx, pool, `SELECT id, email FROM doctors ORDER BY created_at LIMIT $1`, cfg.DoctorLimit, issuer, auth.RoleDoctor)
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	patients, err := loadIdentities(ctx, pool, `SELECT id, email FROM patients LIMIT $1`, cfg.PatientLimit, issuer, auth.RolePatient)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}

	if len(doctors) == 0 {
		return nil, fmt.Errorf("no doctors loaded, run cmd/seed first")
	}
	if len(patients) == 0 {
		return nil, fmt.Errorf("no patients loaded, run cmd/seed first")
	}

	dp := &DataPool{Doctors: doctors, Patients: patients, doctorTokens: make(map[uuid.UUID]string, len(doctors))}
	for _, d := range doctors {
		dp.doctorTokens[d.ID] = d.Token
	}
	return dp, nil
}

func countDuplicateSlots(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT 1 FROM appointments
			GROUP BY doctor_id, appointment_date, appointment_time
			HAVING count(*) > 1
		) d
	`).Scan(&n)
	return n, err
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng)
			case r < s.config.BookingRatio+s.config.CompleteRatio:
				s.doComplete(ctx, rng)
			case rng.Intn(2) == 0:
				s.doLatest(ctx, rng)
			default:
				s.doDoctorList(ctx, rng)
			}
		}
	}
}

func (s *Simulator) send(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return s.client.Do(req)
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	doctor := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]
	patient := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	reqBody := map[string]string{
		"doctor": doctor.ID.String(),
		"date":   s.today.AddDays(rng.Intn(s.config.Days)).String(),
	}
	// Explicit times land on the half hour so that workers collide.
	if rng.Float64() < s.config.ExplicitRatio {
		slot := clock.AddMinutes(clock.BusinessOpen, 30*rng.Intn(28))
		reqBody["time"] = slot.String()
	}

	start := time.Now()
	resp, err := s.send(ctx, http.MethodPost, "/appointments", patient.Token, reqBody)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusCreated:
			success = true
			var apptResp struct {
				ID uuid.UUID `json:"id"`
			}
			if json.NewDecoder(resp.Body).Decode(&apptResp) == nil && apptResp.ID != uuid.Nil {
				s.pool.AddAppointment(booked{ID: apptResp.ID, DoctorID: doctor.ID})
			}
		case http.StatusBadRequest:
			var errResp struct {
				Error string `json:"error"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&errResp)
			conflict = conflictCodes[errResp.Error]
		}
	} else if ctx.Err() != nil {
		return
	}

	s.metrics.Booking.Record(latency, success, conflict)
}

func (s *Simulator) doComplete(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.TakeAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	resp, err := s.send(ctx, http.MethodPost, "/appointments/"+b.ID.String()+"/complete", s.pool.doctorTokens[b.DoctorID], nil)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	} else if ctx.Err() != nil {
		return
	}

	s.metrics.Complete.Record(latency, success, false)
}

func (s *Simulator) doLatest(ctx context.Context, rng *rand.Rand) {
	patient := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	start := time.Now()
	resp, err := s.send(ctx, http.MethodGet, "/appointments/latest", patient.Token, nil)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent
	} else if ctx.Err() != nil {
		return
	}

	s.metrics.Latest.Record(latency, success, false)
}

func (s *Simulator) doDoctorList(ctx context.Context, rng *rand.Rand) {
	doctor := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]

	start := time.Now()
	resp, err := s.send(ctx, http.MethodGet, "/appointments/doctor", doctor.Token, nil)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent
	} else if ctx.Err() != nil {
		return
	}

	s.metrics.DoctorList.Record(latency, success, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Doctors: %d, Patients: %d, Days: %d\n", len(s.pool.Doctors), len(s.pool.Patients), s.config.Days)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Complete", &s.metrics.Complete)
	printOperationReport("Latest for patient", &s.metrics.Latest)
	printOperationReport("List for doctor", &s.metrics.DoctorList)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
