package db

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and makes sure the schema the handlers rely on
// exists. Bootstrap is idempotent so restarts are safe.
func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			os.Getenv("DB_PORT"),
			os.Getenv("DB_NAME"),
		)
	}

	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	ensureUsersTable()
	ensureRequestsTable()
	ensureOffersTables()
	ensurePaymentsTable()
	ensureConversationTables()
	ensureNotificationsTable()
}

// Close releases the pool. Used by shutdown paths.
func Close() {
	if Conn != nil {
		Conn.Close()
	}
}

func ensureUsersTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'seeker' CHECK (role IN ('seeker','provider','admin')),
            provider_verified BOOLEAN NOT NULL DEFAULT FALSE,
            governorate TEXT,
            city TEXT,
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`)
	if err != nil {
		log.Printf("failed to ensure users table: %v", err)
	}
}

func ensureRequestsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS service_requests (
            id UUID PRIMARY KEY,
            seeker_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            category TEXT NOT NULL,
            subcategory TEXT,
            description TEXT NOT NULL,
            urgency TEXT NOT NULL DEFAULT 'normal' CHECK (urgency IN ('low','normal','high','emergency')),
            governorate TEXT NOT NULL,
            city TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'open'
                CHECK (status IN ('open','negotiating','assigned','in_progress','completed','cancelled')),
            assigned_to UUID NULL REFERENCES users(id) ON DELETE SET NULL,
            expires_at TIMESTAMPTZ NOT NULL,
            completed_at TIMESTAMPTZ NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_requests_seeker ON service_requests(seeker_id);
        CREATE INDEX IF NOT EXISTS idx_requests_status_expiry ON service_requests(status, expires_at);
    `)
	if err != nil {
		log.Printf("failed to ensure service_requests table: %v", err)
	}
}

func ensureOffersTables() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS offers (
            id UUID PRIMARY KEY,
            request_id UUID NOT NULL REFERENCES service_requests(id) ON DELETE CASCADE,
            provider_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            price BIGINT NOT NULL CHECK (price >= 0),
            start_date DATE NOT NULL,
            duration TEXT NOT NULL,
            scope_of_work TEXT NOT NULL,
            deposit BIGINT NOT NULL DEFAULT 0 CHECK (deposit >= 0),
            milestone BIGINT NOT NULL DEFAULT 0 CHECK (milestone >= 0),
            final BIGINT NOT NULL DEFAULT 0 CHECK (final >= 0),
            status TEXT NOT NULL DEFAULT 'pending'
                CHECK (status IN ('pending','negotiating','accepted','rejected','expired')),
            expires_at TIMESTAMPTZ NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_offers_request ON offers(request_id);
        CREATE INDEX IF NOT EXISTS idx_offers_provider ON offers(provider_id);
        CREATE UNIQUE INDEX IF NOT EXISTS uniq_offers_accepted_per_request
            ON offers(request_id) WHERE status = 'accepted';
        CREATE UNIQUE INDEX IF NOT EXISTS uniq_offers_active_per_provider
            ON offers(request_id, provider_id) WHERE status IN ('pending','negotiating');

        CREATE TABLE IF NOT EXISTS negotiation_messages (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            offer_id UUID NOT NULL REFERENCES offers(id) ON DELETE CASCADE,
            author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            message TEXT NOT NULL,
            counter_price BIGINT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_negotiation_offer ON negotiation_messages(offer_id, created_at);
    `)
	if err != nil {
		log.Printf("failed to ensure offers tables: %v", err)
	}
}

func ensurePaymentsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS payments (
            id UUID PRIMARY KEY,
            request_id UUID NOT NULL REFERENCES service_requests(id) ON DELETE CASCADE,
            offer_id UUID NOT NULL REFERENCES offers(id) ON DELETE CASCADE,
            seeker_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            provider_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            amount BIGINT NOT NULL CHECK (amount >= 0),
            platform_fee BIGINT NOT NULL CHECK (platform_fee >= 0),
            provider_amount BIGINT NOT NULL CHECK (provider_amount >= 0),
            status TEXT NOT NULL DEFAULT 'pending'
                CHECK (status IN ('pending','agreed','completed','disputed','refunded')),
            method TEXT NOT NULL,
            transaction_id TEXT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE UNIQUE INDEX IF NOT EXISTS uniq_payments_offer ON payments(offer_id);
        CREATE INDEX IF NOT EXISTS idx_payments_seeker ON payments(seeker_id);
        CREATE INDEX IF NOT EXISTS idx_payments_provider ON payments(provider_id);
    `)
	if err != nil {
		log.Printf("failed to ensure payments table: %v", err)
	}
}

func ensureConversationTables() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS conversations (
            id UUID PRIMARY KEY,
            request_id UUID NULL REFERENCES service_requests(id) ON DELETE SET NULL,
            participant_a UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            participant_b UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE UNIQUE INDEX IF NOT EXISTS uniq_conversation_pair
            ON conversations(participant_a, participant_b, COALESCE(request_id, '00000000-0000-0000-0000-000000000000'::uuid));

        CREATE TABLE IF NOT EXISTS messages (
            id UUID PRIMARY KEY,
            conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            content TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            read_at TIMESTAMPTZ NULL
        );
        CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
    `)
	if err != nil {
		log.Printf("failed to ensure conversation tables: %v", err)
	}
}

func ensureNotificationsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS notifications (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            message TEXT NOT NULL DEFAULT '',
            data JSONB NULL,
            priority TEXT NOT NULL DEFAULT 'normal' CHECK (priority IN ('low','normal','high')),
            channels TEXT[] NOT NULL DEFAULT '{push}',
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            read_at TIMESTAMPTZ NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE NOT is_read;
    `)
	if err != nil {
		log.Printf("failed to ensure notifications table: %v", err)
	}
}
