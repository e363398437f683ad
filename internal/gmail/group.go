package gmail

import "sort"

// SenderGroup aggregates the messages of a single sender.
type SenderGroup struct {
	// Sender is the normalized bare address shared by the group.
	Sender string

	Count int

	// Latest is the most recent message of the group by internal timestamp.
	Latest *Message
}

// GroupBySender buckets messages by their normalized sender address. Groups
// come back ordered by descending message count, ties broken by sender for a
// stable listing.
func GroupBySender(msgs []*Message) []SenderGroup {
	bysender := make(map[string]*SenderGroup)
	for _, m := range msgs {
		sender := m.SenderEmail()
		g, ok := bysender[sender]
		if !ok {
			g = &SenderGroup{Sender: sender}
			bysender[sender] = g
		}
		g.Count++
		if g.Latest == nil || m.InternalDate > g.Latest.InternalDate {
			g.Latest = m
		}
	}

	out := make([]SenderGroup, 0, len(bysender))
	for _, g := range bysender {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Sender < out[j].Sender
	})
	return out
}
