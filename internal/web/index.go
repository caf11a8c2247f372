package web

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Quant Terminal</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: linear-gradient(135deg, #0f0c29, #302b63, #24243e);
            color: #fff;
            min-height: 100vh;
            padding: 20px;
        }

        .container {
            max-width: 1400px;
            margin: 0 auto;
            display: grid;
            grid-template-columns: 320px 1fr 360px;
            gap: 20px;
        }

        .card {
            background: rgba(255, 255, 255, 0.05);
            border-radius: 16px;
            padding: 20px;
            border: 1px solid rgba(255, 255, 255, 0.1);
            margin-bottom: 20px;
        }

        h1 {
            font-size: 26px;
            margin-bottom: 16px;
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            -webkit-background-clip: text;
            -webkit-text-fill-color: transparent;
        }

        h2 { font-size: 16px; margin-bottom: 12px; color: #a0aec0; }

        .row {
            display: flex;
            justify-content: space-between;
            padding: 8px 0;
            border-bottom: 1px solid rgba(255, 255, 255, 0.05);
            cursor: default;
        }

        .row.sym { cursor: pointer; }
        .row.sym.active { background: rgba(102, 126, 234, 0.15); }
        .muted { color: #a0aec0; font-size: 13px; }
        .BULLISH, .positive { color: #48bb78; }
        .BEARISH, .negative { color: #f56565; }
        .pick { font-size: 11px; color: #f6e05e; margin-left: 6px; }

        .badge {
            display: inline-block;
            padding: 2px 10px;
            border-radius: 10px;
            font-size: 12px;
            background: rgba(255, 255, 255, 0.1);
        }

        button, input, select, textarea {
            background: rgba(255, 255, 255, 0.08);
            color: #fff;
            border: 1px solid rgba(255, 255, 255, 0.15);
            border-radius: 8px;
            padding: 8px 12px;
            font-size: 14px;
        }

        button { cursor: pointer; }
        button:hover { background: rgba(102, 126, 234, 0.4); }
        canvas { width: 100%; height: 320px; }
        #chatLog { height: 220px; overflow-y: auto; font-size: 13px; margin-bottom: 8px; }
        #chatLog p { margin-bottom: 6px; }
        .controls { display: flex; gap: 8px; flex-wrap: wrap; margin-top: 8px; }
    </style>
</head>
<body>
<div class="container">
    <div>
        <div class="card">
            <h1>Quant Terminal</h1>
            <div class="row"><span class="muted">Balance</span><span id="balance">-</span></div>
            <div class="row"><span class="muted">Position</span><span id="exposure">-</span></div>
            <div class="row"><span class="muted">API</span><span class="badge" id="apiStatus">IDLE</span></div>
            <div class="muted" id="syncMessage"></div>
        </div>
        <div class="card">
            <h2>Scanner</h2>
            <div id="signals"></div>
        </div>
        <div class="card">
            <h2>News</h2>
            <div id="news"></div>
        </div>
    </div>

    <div>
        <div class="card">
            <h2><span id="selected">-</span> <span id="price"></span></h2>
            <canvas id="chart" width="900" height="320"></canvas>
            <div class="controls">
                <select id="horizon">
                    <option>SCALP</option><option selected>DAY</option><option>SWING</option>
                </select>
                <button onclick="post('/api/sync')">Sync prices</button>
                <button onclick="post('/api/analyze')">Analyze</button>
                <input id="qty" type="number" value="1" min="0" step="any" style="width:90px">
                <button onclick="trade('BUY')">Buy</button>
                <button onclick="trade('SELL')">Sell</button>
            </div>
            <div class="controls">
                <input id="stop" type="number" placeholder="Stop loss" step="any" style="width:120px">
                <button onclick="risk()">Risk</button>
                <span class="muted" id="risk"></span>
            </div>
            <div class="controls">
                <textarea id="insight" rows="2" style="width:100%" placeholder="Your notes for the analyst" onchange="post('/api/insight', {insight: this.value})"></textarea>
            </div>
        </div>
        <div class="card">
            <h2>Trades</h2>
            <div id="trades"></div>
        </div>
    </div>

    <div>
        <div class="card">
            <h2>Analysis</h2>
            <div id="analysis" class="muted">No analysis yet</div>
        </div>
        <div class="card">
            <h2>Chat</h2>
            <div id="chatLog"></div>
            <div class="controls">
                <input id="chatInput" style="flex:1" placeholder="Ask about the market">
                <button onclick="chat()">Send</button>
            </div>
        </div>
    </div>
</div>

<script>
    const $ = id => document.getElementById(id);
    const fmt = (v, d = 2) => Number(v).toLocaleString('en-US', {minimumFractionDigits: d, maximumFractionDigits: d});

    async function post(path, body) {
        const res = await fetch(path, {method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify(body || {})});
        const data = await res.json().catch(() => ({}));
        if (!res.ok) { $('syncMessage').textContent = data.error || res.statusText; }
        return data;
    }

    async function trade(side) { await post('/api/trade', {side, quantity: $('qty').value}); loadTrades(); }
    async function risk() {
        const r = await post('/api/risk', {stop_loss: $('stop').value || '0', quantity: $('qty').value});
        if (r.risk !== undefined) $('risk').textContent = 'Risk $' + fmt(r.risk);
    }
    async function chat() {
        const msg = $('chatInput').value.trim();
        if (!msg) return;
        $('chatInput').value = '';
        $('chatLog').innerHTML += '<p><b>You:</b> ' + msg + '</p>';
        const r = await post('/api/chat', {message: msg});
        $('chatLog').innerHTML += '<p><b>Analyst:</b> ' + (r.reply || r.error) + '</p>';
        $('chatLog').scrollTop = $('chatLog').scrollHeight;
    }
    $('horizon').onchange = e => post('/api/horizon', {horizon: e.target.value});

    function render(st) {
        $('balance').textContent = '$' + fmt(st.balance);
        $('exposure').textContent = fmt(st.exposure.net_quantity, 4) + ' (' + fmt(st.exposure.unrealized_pl) + ')';
        $('apiStatus').textContent = st.api_status;
        $('syncMessage').textContent = st.sync_message || '';
        $('selected').textContent = st.selected;
        $('price').textContent = st.price ? '$' + fmt(st.price) : 'loading...';
        $('horizon').value = st.horizon;
        $('signals').innerHTML = st.signals.map(s =>
            '<div class="row sym' + (s.symbol === st.selected ? ' active' : '') + '" onclick="select(\'' + s.symbol + '\')">' +
            '<span>' + s.symbol + (s.ai_pick ? '<span class="pick">AI PICK</span>' : '') + '</span>' +
            '<span class="' + s.sentiment + '">' + (s.is_syncing ? '...' : fmt(s.price) + ' ' + '&#9679;'.repeat(s.strength)) + '</span></div>'
        ).join('');
        $('news').innerHTML = st.news.map(n => '<div class="row"><span>' + n.headline + '</span><span class="muted">' + n.source + '</span></div>').join('');
        renderAnalysis(st.analysis);
    }

    function renderAnalysis(a) {
        if (!a) { $('analysis').innerHTML = 'No analysis yet'; return; }
        if (a.degraded) { $('analysis').innerHTML = '<span class="badge">DEGRADED</span> The provider returned an unreadable answer.'; return; }
        $('analysis').innerHTML =
            '<div class="row"><span>Recommendation</span><span class="' + a.trend + '">' + a.recommendation + '</span></div>' +
            '<div class="row"><span>Entry / Target / Stop</span><span>' + fmt(a.entryPrice) + ' / ' + fmt(a.targetPrice) + ' / ' + fmt(a.stopLoss) + '</span></div>' +
            '<div class="row"><span>Confidence</span><span>' + fmt(a.confidence, 0) + '%</span></div>' +
            '<div class="row"><span>Alpha</span><span>' + fmt(a.alphaScore, 1) + '</span></div>' +
            '<div class="row"><span>Backtest win rate</span><span>' + fmt(a.backtest.winRate, 1) + '%</span></div>' +
            '<p style="margin-top:8px">' + a.reasoning + '</p>' +
            (a.sources || []).map(s => '<div><a class="muted" target="_blank" href="' + s.uri + '">' + s.title + '</a></div>').join('');
    }

    async function select(sym) { await post('/api/symbol', {symbol: sym}); loadChart(); }

    async function loadTrades() {
        const trades = await (await fetch('/api/trades')).json();
        $('trades').innerHTML = trades.map(t =>
            '<div class="row"><span class="' + (t.side === 'BUY' ? 'positive' : 'negative') + '">' + t.side + ' ' + t.symbol + '</span>' +
            '<span>' + t.quantity + ' @ ' + fmt(t.price) + '</span><span class="muted">' + new Date(t.time).toLocaleTimeString() + '</span></div>'
        ).join('');
    }

    async function loadChart() {
        const pts = await (await fetch('/api/chart')).json();
        const c = $('chart'), ctx = c.getContext('2d');
        ctx.clearRect(0, 0, c.width, c.height);
        if (!pts.length) return;
        const vals = pts.flatMap(p => [p.high, p.low, p.upper || p.high, p.lower || p.low]);
        const hi = Math.max(...vals), lo = Math.min(...vals);
        const y = v => c.height - (v - lo) / (hi - lo || 1) * (c.height - 20) - 10;
        const w = c.width / pts.length;
        pts.forEach((p, i) => {
            ctx.strokeStyle = ctx.fillStyle = p.up ? '#48bb78' : '#f56565';
            ctx.beginPath(); ctx.moveTo(i * w + w / 2, y(p.high)); ctx.lineTo(i * w + w / 2, y(p.low)); ctx.stroke();
            ctx.fillRect(i * w + 1, Math.min(y(p.open), y(p.close)), w - 2, Math.max(1, Math.abs(y(p.open) - y(p.close))));
        });
        [['sma20', '#667eea'], ['upper', '#764ba2'], ['lower', '#764ba2']].forEach(([k, col]) => {
            ctx.strokeStyle = col; ctx.beginPath();
            pts.forEach((p, i) => { if (p[k] !== undefined) ctx.lineTo(i * w + w / 2, y(p[k])); });
            ctx.stroke();
        });
    }

    function connect() {
        const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
        ws.onmessage = msg => {
            const ev = JSON.parse(msg.data);
            if (ev.type === 'trade') { loadTrades(); return; }
            if (ev.type === 'analysis') { renderAnalysis(ev.data); return; }
            render(ev.data);
            if (ev.type === 'selection' || ev.type === 'sync' || ev.type === 'state') loadChart();
        };
        ws.onclose = () => setTimeout(connect, 2000);
    }

    connect();
    loadTrades();
</script>
</body>
</html>
`
