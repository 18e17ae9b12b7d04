package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/soltixdb/rediswatch/internal/models"
)

const (
	// MaxSlot is the highest hash slot of a Redis cluster
	MaxSlot = 16383

	flagMyself  = "myself"
	flagSlave   = "slave"
	flagReplica = "replica"
	noPrimary   = "-"

	// <id> <addr> <flags> <primary> <ping-sent> <pong-recv> <config-epoch> <link-state> [slot ...]
	minNodeFields = 8
)

// Topology is what CLUSTER NODES says about the local node
type Topology struct {
	NodeID         string
	Addr           string
	Flags          []string
	IsReplica      bool
	PrimaryID      *string
	OwnedSlots     []models.SlotRange
	MigratingSlots []int
}

// ParseClusterNodes extracts the local node ("myself") from a CLUSTER NODES reply.
// Migration markers ([slot->-id] and [slot-<-id]) go to MigratingSlots and are
// removed from OwnedSlots, so the two never overlap.
func ParseClusterNodes(reply string) (*Topology, error) {
	for _, raw := range strings.Split(reply, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < minNodeFields {
			return nil, &TopologyParseError{Line: line, Reason: fmt.Sprintf("expected at least %d fields, got %d", minNodeFields, len(fields))}
		}

		flags := strings.Split(fields[2], ",")
		if !hasFlag(flags, flagMyself) {
			continue
		}

		topo := &Topology{
			NodeID:    fields[0],
			Addr:      fields[1],
			Flags:     flags,
			IsReplica: hasFlag(flags, flagSlave) || hasFlag(flags, flagReplica),
		}
		if fields[3] != noPrimary {
			primary := fields[3]
			topo.PrimaryID = &primary
		}

		owned, migrating, err := parseSlotTokens(fields[minNodeFields:])
		if err != nil {
			return nil, &TopologyParseError{Line: line, Reason: err.Error()}
		}
		topo.MigratingSlots = models.UniqueSorted(migrating)
		topo.OwnedSlots = models.NormalizeSlots(owned, topo.MigratingSlots)
		return topo, nil
	}

	return nil, &TopologyParseError{Reason: "no line flagged myself"}
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

func parseSlotTokens(tokens []string) ([]models.SlotRange, []int, error) {
	var owned []models.SlotRange
	var migrating []int

	for _, tok := range tokens {
		if strings.HasPrefix(tok, "[") {
			slot, err := parseMigration(tok)
			if err != nil {
				return nil, nil, err
			}
			migrating = append(migrating, slot)
			continue
		}

		r, err := parseSlotRange(tok)
		if err != nil {
			return nil, nil, err
		}
		owned = append(owned, r)
	}
	return owned, migrating, nil
}

// parseMigration handles "[slot->-nodeid]" (migrating out) and "[slot-<-nodeid]" (importing)
func parseMigration(tok string) (int, error) {
	if !strings.HasSuffix(tok, "]") {
		return 0, fmt.Errorf("unterminated migration marker %q", tok)
	}
	parts := strings.SplitN(tok[1:len(tok)-1], "-", 3)
	if len(parts) != 3 || (parts[1] != ">" && parts[1] != "<") || parts[2] == "" {
		return 0, fmt.Errorf("malformed migration marker %q", tok)
	}
	slot, err := parseSlot(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed migration marker %q: %w", tok, err)
	}
	return slot, nil
}

func parseSlotRange(tok string) (models.SlotRange, error) {
	startStr, endStr, isRange := strings.Cut(tok, "-")
	start, err := parseSlot(startStr)
	if err != nil {
		return models.SlotRange{}, err
	}
	if !isRange {
		return models.SlotRange{Start: start, End: start}, nil
	}
	end, err := parseSlot(endStr)
	if err != nil {
		return models.SlotRange{}, err
	}
	if end < start {
		return models.SlotRange{}, fmt.Errorf("inverted slot range %q", tok)
	}
	return models.SlotRange{Start: start, End: end}, nil
}

func parseSlot(s string) (int, error) {
	slot, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid slot %q", s)
	}
	if slot < 0 || slot > MaxSlot {
		return 0, fmt.Errorf("slot %d out of range", slot)
	}
	return slot, nil
}
