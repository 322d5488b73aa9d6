package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateCoreTables creates the party and commission lifecycle tables
func CreateCoreTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_core_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE EXTENSION IF NOT EXISTS "pgcrypto";

				CREATE TABLE IF NOT EXISTS users (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					email VARCHAR(255) NOT NULL UNIQUE,
					name VARCHAR(255),
					role VARCHAR(20) NOT NULL DEFAULT 'marketer',
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE TABLE IF NOT EXISTS projects (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					creator_id UUID NOT NULL REFERENCES users(id),
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(100) UNIQUE,
					default_commission_percent DECIMAL(10,6) DEFAULT 0,
					default_refund_window_days INTEGER DEFAULT 0,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);
				CREATE INDEX IF NOT EXISTS idx_projects_creator ON projects(creator_id);

				CREATE TABLE IF NOT EXISTS coupons (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					project_id UUID NOT NULL REFERENCES projects(id),
					marketer_id UUID NOT NULL REFERENCES users(id),
					code VARCHAR(50) NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE,
					UNIQUE (project_id, code)
				);

				CREATE TABLE IF NOT EXISTS contracts (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					project_id UUID NOT NULL REFERENCES projects(id),
					marketer_id UUID NOT NULL REFERENCES users(id),
					status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
					commission_percent DECIMAL(10,6) NOT NULL,
					refund_window_days INTEGER,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE,
					UNIQUE (project_id, marketer_id)
				);

				CREATE TABLE IF NOT EXISTS payout_accounts (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id UUID NOT NULL REFERENCES users(id),
					provider VARCHAR(50) NOT NULL,
					account_ref VARCHAR(100) NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);
				CREATE INDEX IF NOT EXISTS idx_payout_accounts_user ON payout_accounts(user_id);

				CREATE TABLE IF NOT EXISTS purchases (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					project_id UUID NOT NULL REFERENCES projects(id),
					marketer_id UUID REFERENCES users(id),
					coupon_id UUID,
					gross_amount BIGINT NOT NULL,
					currency VARCHAR(3) NOT NULL,
					attribution VARCHAR(20) NOT NULL DEFAULT 'direct',
					occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
					refunded_amount BIGINT DEFAULT 0,
					commission_amount BIGINT NOT NULL,
					original_commission_amount BIGINT NOT NULL,
					commission_percent DECIMAL(10,6) NOT NULL,
					commission_status VARCHAR(30) NOT NULL,
					payment_status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
					refund_window_days INTEGER NOT NULL,
					refund_eligible_at TIMESTAMP WITH TIME ZONE,
					refunded_at TIMESTAMP WITH TIME ZONE,
					refund_reason TEXT,
					transfer_record_id UUID,
					external_transfer_id VARCHAR(100),
					external_event_id VARCHAR(100),
					external_transaction_id VARCHAR(100),
					metadata JSONB,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);
				CREATE INDEX IF NOT EXISTS idx_purchases_project ON purchases(project_id);
				CREATE INDEX IF NOT EXISTS idx_purchases_marketer ON purchases(marketer_id);
				CREATE INDEX IF NOT EXISTS idx_purchases_status ON purchases(commission_status, payment_status);
				CREATE INDEX IF NOT EXISTS idx_purchases_event ON purchases(project_id, external_event_id);
				CREATE INDEX IF NOT EXISTS idx_purchases_txn ON purchases(project_id, external_transaction_id);

				CREATE TABLE IF NOT EXISTS commission_adjustments (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					creator_id UUID NOT NULL REFERENCES users(id),
					marketer_id UUID NOT NULL REFERENCES users(id),
					amount BIGINT NOT NULL,
					currency VARCHAR(3) NOT NULL,
					reason TEXT,
					status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
					transfer_record_id UUID,
					applied_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);
				CREATE INDEX IF NOT EXISTS idx_adjustments_scope ON commission_adjustments(creator_id, marketer_id, currency, status);

				CREATE TABLE IF NOT EXISTS transfers (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					creator_id UUID NOT NULL REFERENCES users(id),
					marketer_id UUID NOT NULL REFERENCES users(id),
					payout_account_id UUID NOT NULL,
					payout_account_ref VARCHAR(100) NOT NULL,
					amount BIGINT NOT NULL,
					currency VARCHAR(3) NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
					reference VARCHAR(100) UNIQUE,
					external_id VARCHAR(100),
					failure_reason TEXT,
					purchase_count INTEGER DEFAULT 0,
					resolved_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);
				CREATE INDEX IF NOT EXISTS idx_transfers_creator ON transfers(creator_id);
				CREATE INDEX IF NOT EXISTS idx_transfers_status ON transfers(status);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`
				DROP TABLE IF EXISTS transfers;
				DROP TABLE IF EXISTS commission_adjustments;
				DROP TABLE IF EXISTS purchases;
				DROP TABLE IF EXISTS payout_accounts;
				DROP TABLE IF EXISTS contracts;
				DROP TABLE IF EXISTS coupons;
				DROP TABLE IF EXISTS projects;
				DROP TABLE IF EXISTS users;
			`).Error
		},
	}
}
