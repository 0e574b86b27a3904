package udn

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/robcowart/udnm/internal/database/models"
)

const (
	attributePrefix = `Cisco-AVPair := "udn:private-group-id=`

	// DefaultRejectMessage is sent to devices with no active assignment.
	DefaultRejectMessage = "Device not registered"

	usersFileHeader = "# FreeRADIUS users file generated by udnm. Do not edit by hand.\n"
	unknownMAC      = "N/A"
)

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", " ", "\n", " ")

// EncodeAttribute returns the Cisco-AVPair line carrying udnID.
// udnID must already satisfy ValidateID.
func EncodeAttribute(udnID int) string {
	return attributePrefix + strconv.Itoa(udnID) + `"`
}

// ParseAttribute extracts the UDN ID from a line written by EncodeAttribute.
// Surrounding whitespace and a trailing list comma are ignored.
func ParseAttribute(line string) (int, error) {
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(line, ",")
	if !strings.HasPrefix(line, attributePrefix) || !strings.HasSuffix(line, `"`) {
		return 0, fmt.Errorf("not a udn attribute: %q", line)
	}

	digits := line[len(attributePrefix) : len(line)-1]
	id, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("invalid udn id in attribute %q: %w", line, err)
	}
	return id, nil
}

// Encoder renders assignments in the FreeRADIUS users-file grammar
type Encoder struct {
	RejectMessage string
}

// EncodeEntry returns the stanza for one assignment, keyed by its MAC address.
func (e Encoder) EncodeEntry(a *models.Assignment) string {
	mac := unknownMAC
	if a.MACAddress.Valid && a.MACAddress.String != "" {
		mac = a.MACAddress.String
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# UDN %d user %d\n", a.UDNID, a.UserID)
	fmt.Fprintf(&b, "%s Cleartext-Password := \"%s\"\n", mac, mac)
	fmt.Fprintf(&b, "\t%s,\n", EncodeAttribute(a.UDNID))
	fmt.Fprintf(&b, "\tReply-Message := \"%s\"\n", quoteEscaper.Replace(replyMessage(a)))
	return b.String()
}

// EncodeAll renders every active assignment in ascending UDN ID order,
// followed by the DEFAULT reject stanza so unlisted devices are denied.
func (e Encoder) EncodeAll(assignments []*models.Assignment) string {
	active := make([]*models.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.IsActive {
			active = append(active, a)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].UDNID < active[j].UDNID
	})

	var b strings.Builder
	b.WriteString(usersFileHeader)
	for _, a := range active {
		b.WriteString("\n")
		b.WriteString(e.EncodeEntry(a))
	}

	reject := e.RejectMessage
	if reject == "" {
		reject = DefaultRejectMessage
	}
	b.WriteString("\n")
	b.WriteString("DEFAULT Auth-Type := Reject\n")
	fmt.Fprintf(&b, "\tReply-Message := \"%s\"\n", quoteEscaper.Replace(reject))
	return b.String()
}

// EncodeEntry renders one assignment with the default encoder.
func EncodeEntry(a *models.Assignment) string {
	return Encoder{}.EncodeEntry(a)
}

// EncodeAll renders assignments with the default reject message.
func EncodeAll(assignments []*models.Assignment) string {
	return Encoder{}.EncodeAll(assignments)
}

func replyMessage(a *models.Assignment) string {
	name := a.UserName.String
	if name == "" {
		name = a.UserEmail.String
	}
	if name == "" {
		name = fmt.Sprintf("User %d", a.UserID)
	}
	if a.Unit.Valid && a.Unit.String != "" {
		return name + " - " + a.Unit.String
	}
	return name
}
