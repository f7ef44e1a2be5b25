package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Oracle is a query that must return no rows while the system is healthy.
type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_funded_within_target",
			SQL:  `SELECT id, funded_amount, target_budget FROM campaigns WHERE funded_amount > target_budget`,
		},
		{
			Name: "O2_funding_matches_ledger",
			SQL: `SELECT c.id, c.funded_amount, COALESCE(SUM(t.amount), 0) AS ledger
                  FROM campaigns c
                  LEFT JOIN escrow_transactions t ON t.campaign_id = c.id AND t.type = 'Funding'
                  GROUP BY c.id, c.funded_amount
                  HAVING c.funded_amount <> COALESCE(SUM(t.amount), 0)`,
		},
		{
			Name: "O3_release_once",
			SQL: `WITH released AS (
                      SELECT campaign_id, COUNT(*) AS n, COALESCE(SUM(amount), 0) AS total
                      FROM milestones WHERE status = 'released' GROUP BY campaign_id),
                  ledger AS (
                      SELECT campaign_id, COUNT(*) AS n, COALESCE(SUM(amount), 0) AS total
                      FROM escrow_transactions WHERE type = 'Release' GROUP BY campaign_id)
                  SELECT COALESCE(r.campaign_id, l.campaign_id), r.n, l.n
                  FROM released r FULL OUTER JOIN ledger l ON l.campaign_id = r.campaign_id
                  WHERE r.n IS DISTINCT FROM l.n OR r.total IS DISTINCT FROM l.total`,
		},
		{
			Name: "O4_released_within_funded",
			SQL: `SELECT c.id FROM campaigns c
                  JOIN milestones m ON m.campaign_id = c.id AND m.status = 'released'
                  GROUP BY c.id, c.funded_amount
                  HAVING SUM(m.amount) > c.funded_amount`,
		},
		{
			Name: "O5_completion_tracks_milestones",
			SQL: `SELECT c.id, c.status FROM campaigns c
                  WHERE EXISTS (SELECT 1 FROM milestones m WHERE m.campaign_id = c.id)
                    AND (c.status = 'Completed') <>
                        NOT EXISTS (SELECT 1 FROM milestones m WHERE m.campaign_id = c.id AND m.status = 'Pending')`,
		},
		{
			Name: "O6_outbox_per_ledger_entry",
			SQL: `WITH ledger AS (
                      SELECT CASE type WHEN 'Funding' THEN 'campaign.funded'
                                       WHEN 'Release' THEN 'milestone.released'
                                       ELSE 'escrow.adjusted' END AS topic,
                             COUNT(*) AS n
                      FROM escrow_transactions GROUP BY 1),
                  events AS (
                      SELECT topic, COUNT(*) AS n FROM outbox
                      WHERE topic IN ('campaign.funded', 'milestone.released', 'escrow.adjusted')
                      GROUP BY topic)
                  SELECT COALESCE(l.topic, e.topic), l.n, e.n
                  FROM ledger l FULL OUTER JOIN events e ON e.topic = l.topic
                  WHERE l.n IS DISTINCT FROM e.n`,
		},
		{
			Name: "O7_outbox_not_stuck",
			SQL: `SELECT id, attempts, claim_until FROM outbox
                  WHERE status = 'pending'
                    AND now() - created_at > interval '2 minutes'
                    AND (claim_until IS NULL OR claim_until < now() - interval '1 minute')`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
	}
	return "", "", nil
}
