package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_user_progressions",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_rewards",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_leaderboard_counters",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS user_progressions (
	user_id UUID PRIMARY KEY,
	total_xp INTEGER NOT NULL DEFAULT 0 CHECK (total_xp >= 0),
	gems INTEGER NOT NULL DEFAULT 0 CHECK (gems >= 0),
	lives INTEGER NOT NULL DEFAULT 5 CHECK (lives >= 0),
	max_lives INTEGER NOT NULL DEFAULT 5,
	streak_current INTEGER NOT NULL DEFAULT 0 CHECK (streak_current >= 0),
	streak_longest INTEGER NOT NULL DEFAULT 0,
	streak_freezes INTEGER NOT NULL DEFAULT 0 CHECK (streak_freezes >= 0),
	last_active_date DATE,
	frozen_dates TEXT[] NOT NULL DEFAULT '{}',
	total_questions INTEGER NOT NULL DEFAULT 0,
	perfect_quizzes INTEGER NOT NULL DEFAULT 0,
	recent_answers BOOLEAN[] NOT NULL DEFAULT '{}',
	version BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS xp_history (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES user_progressions(user_id),
	old_xp INTEGER NOT NULL,
	new_xp INTEGER NOT NULL,
	delta INTEGER NOT NULL,
	reason TEXT NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_xp_history_user ON xp_history(user_id, created_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS xp_history;
DROP TABLE IF EXISTS user_progressions;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS gem_ledger (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES user_progressions(user_id),
	delta INTEGER NOT NULL CHECK (delta <> 0),
	reason TEXT NOT NULL,
	balance_after INTEGER NOT NULL CHECK (balance_after >= 0),
	item_id TEXT,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_gem_ledger_user ON gem_ledger(user_id, created_at);

CREATE TABLE IF NOT EXISTS user_achievements (
	user_id UUID NOT NULL REFERENCES user_progressions(user_id),
	achievement_id TEXT NOT NULL,
	earned_at TIMESTAMP WITH TIME ZONE NOT NULL,
	PRIMARY KEY (user_id, achievement_id)
);

CREATE TABLE IF NOT EXISTS user_daily_challenges (
	user_id UUID NOT NULL REFERENCES user_progressions(user_id),
	challenge_id TEXT NOT NULL,
	progress INTEGER NOT NULL DEFAULT 0,
	completed_at TIMESTAMP WITH TIME ZONE,
	claimed_at TIMESTAMP WITH TIME ZONE,
	PRIMARY KEY (user_id, challenge_id)
);
`

const migration002Down = `
DROP TABLE IF EXISTS user_daily_challenges;
DROP TABLE IF EXISTS user_achievements;
DROP TABLE IF EXISTS gem_ledger;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS leaderboard_counters (
	user_id UUID NOT NULL REFERENCES user_progressions(user_id),
	window_type TEXT NOT NULL,
	window_key TEXT NOT NULL,
	xp_in_window INTEGER NOT NULL DEFAULT 0 CHECK (xp_in_window >= 0),
	reached_at TIMESTAMP WITH TIME ZONE NOT NULL,
	PRIMARY KEY (user_id, window_type, window_key)
);

CREATE INDEX IF NOT EXISTS idx_leaderboard_window
	ON leaderboard_counters(window_type, window_key, xp_in_window DESC, reached_at ASC, user_id ASC);
`

const migration003Down = `
DROP TABLE IF EXISTS leaderboard_counters;
`
