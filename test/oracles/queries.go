package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All returns the invariants checked during a stress run. Each query selects
// violating rows; an empty result means the invariant holds.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_completed_document_fully_signed",
			SQL: `SELECT d.id FROM workspace_documents d
                  WHERE d.status = 'completed'
                    AND EXISTS (SELECT 1 FROM signatures s
                                WHERE s.document_id = d.id AND s.status <> 'SIGNED')`,
		},
		{
			Name: "O2_completed_document_has_signatures",
			SQL: `SELECT d.id FROM workspace_documents d
                  WHERE d.status = 'completed'
                    AND NOT EXISTS (SELECT 1 FROM signatures s WHERE s.document_id = d.id)`,
		},
		{
			Name: "O3_signed_signature_consistent",
			SQL: `SELECT id FROM signatures
                  WHERE (status = 'SIGNED' AND signed_at IS NULL)
                     OR (status = 'PENDING' AND signed_at IS NOT NULL)`,
		},
		{
			Name: "O4_signature_belongs_to_accepted_participant",
			SQL: `SELECT s.id FROM signatures s
                  JOIN participants p ON p.id = s.participant_id
                  WHERE p.status <> 'ACCEPTED'`,
		},
		{
			Name: "O5_participant_response_recorded",
			SQL: `SELECT id FROM participants
                  WHERE (status IN ('ACCEPTED','REJECTED') AND responded_at IS NULL)
                     OR (status = 'INVITED' AND responded_at IS NOT NULL)`,
		},
		{
			Name: "O6_attestation_backed_by_signature",
			SQL: `SELECT a.id FROM attestations a
                  WHERE NOT EXISTS (SELECT 1 FROM signatures s
                                    JOIN participants p ON p.id = s.participant_id
                                    WHERE s.document_id = a.document_id
                                      AND p.user_id = a.user_id
                                      AND s.status = 'SIGNED')`,
		},
		{
			Name: "O7_pending_verification_has_no_result",
			SQL: `SELECT id FROM verification_transactions
                  WHERE status = 'pending' AND result IS NOT NULL`,
		},
		{
			Name: "O8_verification_status_known",
			SQL: `SELECT id FROM verification_transactions
                  WHERE status NOT IN ('pending','verified','not_verified','error')`,
		},
		{
			Name: "O9_resolved_verification_has_result",
			SQL: `SELECT id FROM verification_transactions
                  WHERE status IN ('verified','not_verified','error') AND result IS NULL`,
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
	}
	return "", "", nil
}
