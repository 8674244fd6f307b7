package store

import (
	"fmt"
	"time"
)

// Seed installs the demonstration case so new users have something to
// explore. It refuses when cases already exist unless force is set; it is
// never triggered implicitly by an empty load.
func (s *Store) Seed(force bool) error {
	return s.Mutate(func(tree *Tree) error {
		if len(tree.Cases) > 0 && !force {
			return fmt.Errorf("store already contains %d case(s); re-run with force to seed anyway", len(tree.Cases))
		}
		tree.Cases = append(tree.Cases, DemoCase())
		return nil
	})
}

// DemoCase builds the sample investigation. Its notes run through the normal
// fingerprint and extraction pipeline and exercise every indicator type; they
// are installed unsigned.
func DemoCase() Case {
	ts := time.Now().UTC().Add(-9 * time.Minute)
	next := func() time.Time {
		ts = ts.Add(time.Minute)
		return ts
	}

	c := NewCase("DEMO-2024-001", "Sample Investigation", "Demo User")

	c.Notes = append(c.Notes,
		NewNote(next(), `Initial case briefing: Suspected data exfiltration incident.

Key objectives:
- Identify compromised systems
- Determine scope of data loss
- Document timeline of events

#incident-response #data-breach #investigation`),
		NewNote(next(), `Investigation lead: Employee reported suspicious email from sender@phishing-domain.com
Initial analysis shows potential credential harvesting attempt.
Review email headers and attachments for IOCs. #phishing #email-analysis`),
	)

	laptop := NewEvidence("Employee Laptop HDD", "Primary workstation hard drive - user reported suspicious activity")
	laptop.Metadata["source_hash"] = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	laptop.Notes = append(laptop.Notes,
		NewNote(next(), `Forensic imaging completed. Drive imaged using FTK Imager.
Image hash verified: SHA256 e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855

Chain of custody maintained throughout process. #forensics #imaging #chain-of-custody`),
		NewNote(next(), `Discovered suspicious connections to external IP addresses:
- 192.168.1.100 (local gateway)
- 203.0.113.45 (external, geolocation: Unknown)
- 198.51.100.78 (command and control server suspected)

Browser history shows visits to malicious-site.com and data-exfil.net.
#network-analysis #ioc #c2-server`),
		NewNote(next(), `Malware identified in temp directory:
File: evil.exe
MD5: d41d8cd98f00b204e9800998ecf8427e
SHA1: da39a3ee5e6b4b0d3255bfef95601890afd80709
SHA256: e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855

Submitting to VirusTotal for analysis. #malware #hash-analysis #virustotal`),
		NewNote(next(), `Timeline analysis reveals:
- 2024-01-15 09:23:45 - Suspicious email received
- 2024-01-15 09:24:12 - User clicked phishing link https://evil-domain.com/login
- 2024-01-15 09:25:03 - Credentials submitted to attacker-controlled site
- 2024-01-15 09:30:15 - Lateral movement detected

User credentials compromised. Recommend immediate password reset. #timeline #lateral-movement`),
	)
	c.Evidence = append(c.Evidence, laptop)

	firewall := NewEvidence("Firewall Logs", "Corporate firewall logs from incident timeframe")
	firewall.Metadata["source_hash"] = "a3f5c8b912e4d67f89b0c1a2e3d4f5a6b7c8d9e0f1a2b3c4d5e6f7a8b9c0d1e2"
	firewall.Notes = append(firewall.Notes,
		NewNote(next(), `Log analysis shows outbound connections to suspicious domains:
- attacker-c2.com on port 443 (encrypted channel)
- data-upload.net on port 8080 (unencrypted)
- exfil-server.org on port 22 (SSH tunnel)

Total data transferred: approximately 2.3 GB over 4 hours.
#log-analysis #data-exfiltration #network-traffic`),
		NewNote(next(), `Contact information found in malware configuration:
Email: attacker@malicious-domain.com
Backup C2: 2001:0db8:85a3:0000:0000:8a2e:0370:7334 (IPv6)

Cross-referencing with threat intelligence databases. #threat-intel #attribution`),
	)
	c.Evidence = append(c.Evidence, firewall)

	email := NewEvidence("Phishing Email", "Original phishing email preserved in .eml format")
	email.Notes = append(email.Notes,
		NewNote(next(), `Email headers analysis:
From: sender@phishing-domain.com (spoofed)
Reply-To: attacker@evil-mail-server.net
X-Originating-IP: 198.51.100.99

Email contains embedded tracking pixel at http://tracking.malicious-site.com/pixel.gif
Attachment: invoice.pdf.exe (double extension trick) #email-forensics #phishing-analysis`),
	)
	c.Evidence = append(c.Evidence, email)

	return c
}
