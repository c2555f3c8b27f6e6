package gateway

import (
	"html/template"
)

type checkoutOptions struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	OrderID     string            `json:"order_id"`
	Prefill     map[string]string `json:"prefill"`
	Notes       map[string]string `json:"notes,omitempty"`
}

type pageData struct {
	Title       string
	Options     checkoutOptions
	CallbackURL string
	Token       string
}

var checkoutPage = template.Must(template.New("checkout").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="/assets/checkout.js"></script>
</head>
<body>
<p id="status">Opening secure payment window…</p>
<script>
(function () {
  var callbackURL = {{.CallbackURL}};
  var token = {{.Token}};
  var done = false;
  function post(kind, payload) {
    if (done) { return; }
    done = true;
    payload = payload || {};
    payload.event = kind;
    fetch(callbackURL, {
      method: "POST",
      headers: {"Content-Type": "application/json", "X-Callback-Token": token},
      body: JSON.stringify(payload)
    }).then(function () {
      document.getElementById("status").textContent = "You can close this window.";
    });
  }
  var options = {{.Options}};
  options.handler = function (resp) { post("success", resp); };
  options.modal = { ondismiss: function () { post("dismiss"); } };
  var rzp = new Razorpay(options);
  rzp.on("payment.failed", function (resp) { post("failure", { error: resp.error }); });
  rzp.open();
})();
</script>
</body>
</html>
`))
