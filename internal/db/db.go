package db

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and bootstraps the schema.
func Init(dsn string) {
	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	ensureExtensions()
	ensureHandymenTable()
	ensureJobsTable()
	ensureRatingsTable()
	ensureMessagesTable()
	ensurePaymentsTable()
	ensureNotificationsTable()
}

// Close releases the pool.
func Close() {
	if Conn != nil {
		Conn.Close()
	}
}

// ensureExtensions enables cube/earthdistance used by the nearest-handyman query
func ensureExtensions() {
	ctx := context.Background()
	if _, err := Conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS cube`); err != nil {
		log.Printf("failed to enable cube extension: %v", err)
	}
	if _, err := Conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS earthdistance`); err != nil {
		log.Printf("failed to enable earthdistance extension: %v", err)
	}
}

func ensureHandymenTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS handymen (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL UNIQUE,
            skill_categories TEXT[] NOT NULL,
            experience_years INTEGER NOT NULL DEFAULT 0,
            service_description TEXT NOT NULL,
            base_price NUMERIC NOT NULL DEFAULT 0,
            price_type TEXT NOT NULL DEFAULT 'per_hour' CHECK (price_type IN ('per_hour','per_job','in_agreement')),
            availability_days TEXT[] NOT NULL DEFAULT '{monday,tuesday,wednesday,thursday,friday}',
            available_from TEXT NOT NULL DEFAULT '08:00',
            available_to TEXT NOT NULL DEFAULT '18:00',
            lng DOUBLE PRECISION NOT NULL,
            lat DOUBLE PRECISION NOT NULL,
            area_name TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            city TEXT NOT NULL DEFAULT '',
            rating_average NUMERIC NOT NULL DEFAULT 0,
            rating_count INTEGER NOT NULL DEFAULT 0,
            total_jobs INTEGER NOT NULL DEFAULT 0,
            completed_jobs INTEGER NOT NULL DEFAULT 0,
            is_verified BOOLEAN NOT NULL DEFAULT FALSE,
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_handymen_skills ON handymen USING GIN (skill_categories);
        CREATE INDEX IF NOT EXISTS idx_handymen_active ON handymen(is_active, is_verified);
        CREATE INDEX IF NOT EXISTS idx_handymen_location ON handymen USING GIST (ll_to_earth(lat, lng));
    `)
	if err != nil {
		log.Printf("failed to create handymen table: %v", err)
	}
}

func ensureJobsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS jobs (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            job_code TEXT UNIQUE,
            customer_id UUID NOT NULL,
            handyman_id UUID NOT NULL REFERENCES handymen(id),
            category TEXT NOT NULL,
            description TEXT NOT NULL,
            lng DOUBLE PRECISION NOT NULL,
            lat DOUBLE PRECISION NOT NULL,
            address TEXT NOT NULL,
            area_name TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'requested' CHECK (status IN (
                'requested', 'accepted', 'on_the_way', 'in_progress', 'completed', 'cancelled', 'rejected'
            )),
            price NUMERIC NOT NULL CHECK (price >= 0),
            commission NUMERIC NOT NULL DEFAULT 0,
            preferred_time TIMESTAMP WITH TIME ZONE NULL,
            scheduled_time TIMESTAMP WITH TIME ZONE NULL,
            completed_at TIMESTAMP WITH TIME ZONE NULL,
            cancelled_at TIMESTAMP WITH TIME ZONE NULL,
            cancellation_reason TEXT NULL,
            cancelled_by TEXT NULL CHECK (cancelled_by IN ('customer','handyman','admin')),
            rating_id UUID NULL,
            payment_status TEXT NOT NULL DEFAULT 'pending' CHECK (payment_status IN ('pending','completed','refunded')),
            last_message_text TEXT NULL,
            last_message_at TIMESTAMP WITH TIME ZONE NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_jobs_customer_status ON jobs(customer_id, status);
        CREATE INDEX IF NOT EXISTS idx_jobs_handyman_status ON jobs(handyman_id, status);
        CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at DESC);
    `)
	if err != nil {
		log.Printf("failed to create jobs table: %v", err)
	}
}

func ensureRatingsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS ratings (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            job_id UUID NOT NULL UNIQUE REFERENCES jobs(id),
            customer_id UUID NOT NULL,
            handyman_id UUID NOT NULL REFERENCES handymen(id),
            rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
            comment TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_ratings_handyman ON ratings(handyman_id);
        CREATE INDEX IF NOT EXISTS idx_ratings_created ON ratings(created_at DESC);
    `)
	if err != nil {
		log.Printf("failed to create ratings table: %v", err)
	}
}

func ensureMessagesTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS messages (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            job_id UUID NOT NULL REFERENCES jobs(id),
            sender_id UUID NOT NULL,
            recipient_id UUID NOT NULL,
            text TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'sent' CHECK (status IN ('sent','delivered','read')),
            read_at TIMESTAMP WITH TIME ZONE NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_messages_job_created ON messages(job_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_messages_recipient_unread ON messages(recipient_id) WHERE status <> 'read';
    `)
	if err != nil {
		log.Printf("failed to create messages table: %v", err)
	}
}

func ensurePaymentsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS payments (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            job_id UUID NOT NULL REFERENCES jobs(id),
            customer_id UUID NOT NULL,
            handyman_id UUID NOT NULL REFERENCES handymen(id),
            amount NUMERIC NOT NULL CHECK (amount >= 0),
            commission NUMERIC NOT NULL CHECK (commission >= 0),
            handyman_earning NUMERIC NOT NULL CHECK (handyman_earning >= 0),
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','completed','refunded')),
            payment_method TEXT NOT NULL DEFAULT 'cash' CHECK (payment_method IN ('cash','mobile_money','bank_transfer')),
            transaction_id TEXT NULL,
            paid_at TIMESTAMP WITH TIME ZONE NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_payments_job ON payments(job_id);
        CREATE INDEX IF NOT EXISTS idx_payments_handyman ON payments(handyman_id);
        CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status);
    `)
	if err != nil {
		log.Printf("failed to create payments table: %v", err)
	}
}

func ensureNotificationsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS notifications (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            recipient_id UUID NOT NULL,
            type TEXT NOT NULL CHECK (type IN ('message','job_update','system')),
            title TEXT NOT NULL,
            message TEXT NOT NULL,
            data JSONB NULL,
            read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created ON notifications(recipient_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_notifications_recipient_unread ON notifications(recipient_id) WHERE read = FALSE;
    `)
	if err != nil {
		log.Printf("failed to create notifications table: %v", err)
	}
}
