package fraud

import "strings"

// disposableDomains are throwaway mail providers.  Matching is on the exact
// lower-cased domain; subdomains are not matched.
var disposableDomains = toSet([]string{
	"mailinator.com", "mailinator2.com", "mailinater.com", "guerrillamail.com", "guerrillamail.net",
	"guerrillamail.org", "guerrillamailblock.com", "tempmail.com", "temp-mail.org", "tempmail.net",
	"temp-mail.io", "10minutemail.com", "10minutemail.net", "10minmail.com", "throwaway.email",
	"throwawaymail.com", "fakeinbox.com", "fakemailgenerator.com", "getnada.com", "nada.email",
	"mailnesia.com", "mailnator.com", "dispostable.com", "disposablemail.com", "yopmail.com",
	"yopmail.fr", "yopmail.net", "sharklasers.com", "spam4.me", "grr.la", "guerrillamail.info",
	"pokemail.net", "spamgourmet.com", "mytrashmail.com", "trashmail.com", "trashmail.net",
	"mailcatch.com", "mailscrap.com", "tempinbox.com", "tempr.email", "tempsky.com", "discard.email",
	"discardmail.com", "spambox.us", "spamfree24.org", "spamherelots.com", "mailfence.com",
	"getairmail.com", "mohmal.com", "emailondeck.com", "mintemail.com", "tempail.com",
	"burnermail.io", "burnermailapp.com", "inboxalias.com", "jetable.org", "maildrop.cc",
	"mailsac.com", "receivesms.co", "sms-receive.net", "crazymailing.com", "deadaddress.com",
	"einrot.com", "emailtemporar.ro", "fakemailgenerator.net", "fakemail.fr", "filzmail.com",
	"fleckens.hu", "get2mail.fr", "getonemail.com", "haltospam.com", "hotmailproduct.com",
	"imgof.com", "imstations.com", "incognitomail.com", "ipoo.org", "irish2me.com", "jetable.com",
	"kasmail.com", "kaspop.com", "keepmymail.com", "killmail.com", "klzlv.com", "kulturbetrieb.info",
	"kurzepost.de", "lawlita.com", "letthemeatspam.com", "lhsdv.com", "lifebyfood.com",
	"link2mail.net", "litedrop.com", "lol.ovpn.to", "lookugly.com", "lortemail.dk",
	"lovemeleaveme.com", "lr78.com", "maboard.com", "mail-hierarchycompare.pl",
	"mail-hierarchylabs.eu", "mail2rss.org", "mail333.com", "mail4trash.com", "mailbidon.com",
	"mailblocks.com", "mailbucket.org", "mailcat.biz", "mailcheap.co", "mailde.de", "mailde.info",
	"maildx.com", "mailed.ro", "mailexpire.com", "mailfa.tk", "mail-hierarchyforge.tk",
	"mailfreeonline.com", "mailguard.me", "mailhazard.com", "mailhazard.us", "mailhz.me",
	"mailimate.com", "mailin8r.com", "mailincubator.com", "mailismagic.com", "mailjunk.cf",
	"mailjunk.ga", "mailjunk.gq", "mailjunk.ml", "mailjunk.tk", "mailmate.com", "mailme.gq",
	"mailme.ir", "mailme.lv", "mailme24.com", "mailmetrash.com", "mailmoat.com", "mailnull.com",
	"mailorg.org", "mailpick.biz", "mailproxsy.com", "mailquack.com", "mailrock.biz", "mailseal.de",
	"mailshell.com", "mailsiphon.com", "mailslapping.com", "mailslite.com", "mailspam.xyz",
	"mailtemp.info", "mailtothis.com", "mailzilla.com", "mailzilla.org", "anonymbox.com",
	"anonymousemail.me", "antispam.de", "binkmail.com", "bobmail.info", "bofthew.com", "bootybay.de",
	"boun.cr", "bouncr.com", "boxformail.in", "brefmail.com", "brennendesreich.de",
	"broadbandninja.com", "bsnow.net", "buffemail.com", "bugmenever.com", "bumpymail.com", "bund.us",
	"bundes-li.ga", "burnthespam.info", "buymoreplays.com", "byom.de", "cachedot.net", "card.zp.ua",
	"casualdx.com", "cek.pm", "cellurl.com", "cem.net", "centermail.com", "centermail.net",
	"chammy.info", "cheatmail.de",
})

func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, d := range list {
		m[d] = struct{}{}
	}
	return m
}

// IsDisposableEmail reports whether the domain of email is on the denylist.
// Empty or malformed addresses are not disposable.
func IsDisposableEmail(email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return false
	}
	_, ok := disposableDomains[strings.ToLower(strings.TrimSpace(email[at+1:]))]
	return ok
}
