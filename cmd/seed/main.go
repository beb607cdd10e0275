package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-workflow-engine/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, 4)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedSchedules(context.Background(), pool, 40); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}
	if err := seedMedicines(context.Background(), pool, 200); err != nil {
		log.Fatalf("seed medicines: %v", err)
	}
	if err := seedVisits(context.Background(), pool, 500); err != nil {
		log.Fatalf("seed visits: %v", err)
	}

	log.Println("seed complete")
}

func seedSchedules(ctx context.Context, pool *pgxpool.Pool, doctorCount int) error {
	log.Printf("seeding schedules for %d doctors", doctorCount)

	departments := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	windows := [][2]string{
		{"09:00", "12:00"},
		{"13:00", "17:00"},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < doctorCount; i++ {
		doctor := "Dr. " + gofakeit.Name()
		dept := departments[gofakeit.Number(0, len(departments)-1)]

		// Monday through Friday, morning and afternoon windows
		for day := 1; day <= 5; day++ {
			for _, w := range windows {
				_, err := tx.Exec(ctx, `
					INSERT INTO doctor_schedules (id, doctor_name, department_name, day_of_week,
					                              start_time, end_time, max_appointments, is_active,
					                              created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, true, now(), now())
				`, uuid.New(), doctor, dept, day, w[0], w[1], gofakeit.Number(4, 12))
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("schedules seeded")
	return nil
}

func seedMedicines(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d medicines", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		capacity := gofakeit.Number(100, 1000)
		onHand := gofakeit.Number(0, capacity)
		reorder := capacity / 10
		expiry := time.Now().AddDate(0, gofakeit.Number(1, 24), 0)

		_, err := tx.Exec(ctx, `
			INSERT INTO medicines (id, sku, name, stock_on_hand, stock_capacity,
			                       reorder_level, low_stock_threshold, expiry_date,
			                       is_archived, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, now(), now())
		`, uuid.New(), fmt.Sprintf("MED-%05d", i+1), gofakeit.ProductName(),
			onHand, capacity, reorder, reorder*2, expiry)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("medicines seeded")
	return nil
}

func seedVisits(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d visits", count)

	const batchSize = 250

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO visits (id, patient_name, status, is_emergency, version,
				                    assigned_doctor, diagnosis, clinical_notes,
				                    lab_requested, lab_result_ready,
				                    prescription_created, prescription_dispensed,
				                    follow_up_date, created_at, updated_at)
				VALUES ($1, $2, 'intake', $3, 1, '', '', '', false, false, false, false, NULL, now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Number(0, 19) == 0)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("visits seeded: %d/%d", end, count)
	}

	log.Println("visits seeded")
	return nil
}
