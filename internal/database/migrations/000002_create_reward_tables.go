package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateRewardTables creates the milestone reward and collaborator sink tables
func CreateRewardTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_reward_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS rewards (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					project_id UUID NOT NULL REFERENCES projects(id),
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(100) UNIQUE,
					milestone_type VARCHAR(30) NOT NULL,
					milestone_value BIGINT NOT NULL,
					reward_type VARCHAR(20) NOT NULL DEFAULT 'CASH',
					amount BIGINT DEFAULT 0,
					currency VARCHAR(3),
					description TEXT,
					earn_limit VARCHAR(30) NOT NULL DEFAULT 'ONCE_PER_MARKETER',
					availability VARCHAR(20) NOT NULL DEFAULT 'UNLIMITED',
					availability_cap INTEGER DEFAULT 0,
					allowed_marketers JSONB,
					status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
					starts_at TIMESTAMP WITH TIME ZONE NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);
				CREATE INDEX IF NOT EXISTS idx_rewards_status ON rewards(status);

				CREATE TABLE IF NOT EXISTS reward_earneds (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					reward_id UUID NOT NULL REFERENCES rewards(id),
					project_id UUID NOT NULL,
					marketer_id UUID NOT NULL REFERENCES users(id),
					sequence INTEGER NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'UNLOCKED',
					amount BIGINT DEFAULT 0,
					currency VARCHAR(3),
					claimed_at TIMESTAMP WITH TIME ZONE,
					paid_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE,
					UNIQUE (reward_id, marketer_id, sequence)
				);

				CREATE TABLE IF NOT EXISTS attribution_events (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					project_id UUID NOT NULL REFERENCES projects(id),
					marketer_id UUID NOT NULL REFERENCES users(id),
					kind VARCHAR(20) NOT NULL,
					external_event_id VARCHAR(100),
					occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
					metadata JSONB,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);
				CREATE INDEX IF NOT EXISTS idx_attribution_scope ON attribution_events(project_id, marketer_id, kind, occurred_at);

				CREATE TABLE IF NOT EXISTS audit_events (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					type VARCHAR(50) NOT NULL,
					actor_id UUID,
					project_id UUID,
					subject_type VARCHAR(50) NOT NULL,
					subject_id VARCHAR(100) NOT NULL,
					data JSONB,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);
				CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit_events(subject_type, subject_id);

				CREATE TABLE IF NOT EXISTS notifications (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id UUID NOT NULL REFERENCES users(id),
					type VARCHAR(50) NOT NULL,
					title VARCHAR(255) NOT NULL,
					message TEXT,
					data JSONB,
					read_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);
				CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`
				DROP TABLE IF EXISTS notifications;
				DROP TABLE IF EXISTS audit_events;
				DROP TABLE IF EXISTS attribution_events;
				DROP TABLE IF EXISTS reward_earneds;
				DROP TABLE IF EXISTS rewards;
			`).Error
		},
	}
}
